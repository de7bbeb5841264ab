// Package resource bounds the work a psm service accepts: concurrent matching
// jobs, admitted request rate, buffered upload bytes and upload throughput.
package resource
