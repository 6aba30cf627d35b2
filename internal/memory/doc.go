// Package memory sizes the Go heap for containers.
//
// GOMAXPROCS follows cgroup CPU limits on its own, but GOMEMLIMIT does not.
// [ConfigureFromEnv] derives it from MEMORY_LIMIT (set from the Kubernetes
// Downward API) times MEMORY_RATIO, unless GOMEMLIMIT is already set:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
package memory
