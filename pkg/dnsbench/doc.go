/*
Package dnsbench contains functionality for benchmarking DNS "A" lookups against a set of
nameservers and persisting every measured lookup. A benchmark is represented by the Benchmark
struct, which is set up with the servers, domains, iteration count, a resolution Backend and a
ResultStore, and executed using Benchmark.Run. Each execution of Benchmark.Run is one run: it owns
a run id, a run start timestamp, its resolver cache and a single write batch that is committed
to the store only after every lookup of the run has completed.
*/
package dnsbench
