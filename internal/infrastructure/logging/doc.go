// Package logging builds the bridge's slog logger.
//
// Every record carries service and version attributes. Format is json or
// text. Output is stdout, stderr or a file; file output is rotated by size
// with lumberjack and must be closed on shutdown:
//
//	logging:
//	  level: info
//	  output: file
//	  file:
//	    path: /var/log/graylogic/scanner.log
//	    max_size: 50      # MB before rotation
//	    max_backups: 3
//	    max_age: 28       # days
//	    compress: true
//
// Typical use:
//
//	log := logging.New(cfg.Logging, version)
//	defer log.Close()
//	log.Info("port opened", "port", cfg.Scanner.Port)
package logging
