/*
Package workers sizes worker pools from the CPUs actually available to the
process.

runtime.NumCPU reports the host's CPUs, which overstates what a container
with a CPU limit may use. GOMAXPROCS follows the limit, so the helpers here
scale from it:

	// remote playlist fetches: 2 workers per CPU, at most 16
	n := workers.ForIO(16)

	// directory scans (read and parse): 1.5 workers per CPU, at most 8
	n := workers.ForMixed(8)

Operators can pin the count with the LOAD_WORKERS environment variable. The
limit passed by the caller still applies:

	env:
	- name: LOAD_WORKERS
	  value: "4"

Always pass a limit. Concurrent fetches against a single origin or SQLite
writes gain nothing from dozens of goroutines.
*/
package workers
