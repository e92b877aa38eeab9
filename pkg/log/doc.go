/*
Package log wraps zerolog with the process-wide Logger every other
package derives a component-scoped child logger from.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	schedulerLog := log.WithComponent("batch_scheduler")
	schedulerLog.Info().Str("job_id", id).Msg("dispatched batch job")

pkg/batch, pkg/serverless, and pkg/cloud each hold one WithComponent
logger for the lifetime of their scheduler; cmd/wrench-sim calls Init
once at startup from its persistent --log-level/--log-json flags.
*/
package log
