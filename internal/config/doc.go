// Package config provides configuration parsing for the impact command.
//
// The configuration is stored in impact.json (or impact.yaml) and covers
// logging, the reactive runtime budget, the devtools server and the
// Prometheus and OpenTelemetry instrumentation.
//
// # Configuration File Structure
//
//	{
//	  "name": "counter-demo",
//	  "logLevel": "debug",
//	  "runtime": {
//	    "maxRunsPerFlush": 1000,
//	    "checkGoroutine": true,
//	    "tick": "500ms"
//	  },
//	  "devtools": {
//	    "addr": "localhost:7070",
//	    "eventBuffer": 1024
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "impact"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  }
//	}
//
// The same keys are accepted in YAML.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Devtools:", cfg.Devtools.Addr)
package config
