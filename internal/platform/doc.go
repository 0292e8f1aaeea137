// Package platform implements the hotplug, frequency policy and load metric
// primitives on Linux.
//
// CPU topology and hotplug go through /sys/devices/system/cpu: the possible
// mask, cpuN/online, and the cpufreq scaling_* attributes. Load comes from
// procs_running, polled through gopsutil and averaged between controller
// cycles into the fixed-point form the classifier expects.
//
// All sysfs paths are rooted at a configurable directory so tests can run
// against a temp tree.
package platform
