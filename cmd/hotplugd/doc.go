// Command hotplugd runs the adaptive CPU core hotplug controller.
//
// Usage:
//
//	hotplugd -config /etc/hotplugd.yaml -listen 127.0.0.1:8787
//
// Flags:
//
//	-config   YAML configuration file (optional)
//	-listen   Control Surface bind address, overrides the config file
//
// Behavior:
//
// Loads configuration, probes the platform, then runs the sampling loop,
// the load poller and, when available, the Control Surface, the touch input
// listener and the display watcher. Subsystems that fail to register are
// reported as warnings in /v1/status and the controller keeps running
// without them. SIGINT or SIGTERM stops everything and leaves the cores in
// their current state. The binary does not daemonize itself.
package main
