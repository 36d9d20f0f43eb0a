// Package influxdb records scanner activity in InfluxDB 2.
//
// The bridge writes two measurements through WritePoint:
//   - scanner_status: display lines and indicator flags, on every change
//   - talkgroup_activity: the talkgroup heard while squelch is open
//
// Recording is optional. Connect returns ErrDisabled when
// influxdb.enabled is false, and the bridge then runs without a recorder.
package influxdb
