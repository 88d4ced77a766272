// Package config provides configuration parsing for the faceflap client.
//
// The configuration is stored in faceflap.json in the working directory.
// This package handles loading, saving, defaulting and validating it.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "origin": "http://localhost:8000",
//	    "reconnectDelay": "3s",
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s",
//	    "pingInterval": "25s"
//	  },
//	  "capture": {
//	    "device": "synthetic",
//	    "rate": 10,
//	    "quality": 80,
//	    "width": 300,
//	    "height": 225,
//	    "autoStart": true
//	  },
//	  "display": { "enabled": true, "fps": 20 },
//	  "debug": { "addr": "127.0.0.1:9090" },
//	  "archive": { "bucket": "my-bucket", "prefix": "sessions/", "region": "us-east-1" },
//	  "log": { "level": "info", "format": "text" }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Server:", cfg.Server.Origin)
package config
