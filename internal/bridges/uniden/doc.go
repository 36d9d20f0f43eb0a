// Package uniden implements the Uniden BC246T scanner bridge for Gray Logic.
//
// This package drives the scanner's serial remote protocol and exposes the
// scanner to Gray Logic over MQTT.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   Gray Logic    │   MQTT   │  Scanner Bridge │  serial
//	│      Core       │◄────────►│   (this pkg)    │◄────────► BC246T
//	└─────────────────┘          └─────────────────┘
//
// # Wire Protocol
//
// Commands are ASCII lines of comma separated fields ending in a carriage
// return. The first field is a three letter command name. The scanner
// answers each command with exactly one line, normally echoing the name:
//
//	KEY,S,P\r   →   KEY,OK
//	STS\r       →   STS,   SCAN   , ,BC246T  , ,...,0,0,0,0
//	PRG\r       →   PRG,NG
//
// Arguments that are zero, empty or false are omitted from the line, so a
// later argument moves into the vacated position.
//
// Error replies decode to sentinel errors: ERR (ErrDeviceError), a trailing
// NG (ErrCommandUnavailable), FER (ErrFramingError), ORER (ErrOverrunError)
// and silence (ErrNoResponse).
//
// # Usage
//
//	dev, err := uniden.Open(uniden.DeviceConfig{Port: "/dev/ttyUSB0"})
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	if err := dev.SetProgram(true); err != nil {
//	    return err
//	}
//	for sys, err := range dev.Systems().All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(sys.Index, sys.Name)
//	}
//
// # Thread Safety
//
// A Device serialises its exchanges, so one command is in flight at a time
// even when the bridge poller, MQTT commands and the HTTP API share it.
package uniden
