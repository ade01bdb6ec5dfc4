/*
Package orderflow wires an in-process order-event pipeline.

# Overview

A persisted order is converted into a raw OrderCreated event and published
synchronously. The message filter validates it and either dead-letters it
or fans the trusted FilteredOrderCreated event out to three independent
consumers:

	publish -> filter -> bus -+-> router -> high-value | standard
	                          +-> aggregator -> listener
	                          +-> notifications

Every stage runs on the publisher's goroutine before Publish returns, so a
caller observes all side effects (including dead letters) immediately. No
stage ever returns an error to the caller: failures land in the dead letter
channel with a reason prefix naming the consumer that failed.

# Basic Usage

	p := orderflow.New(orderflow.DefaultSettings(),
	    orderflow.WithLogger(logger),
	)
	defer p.Close()

	p.Publish(ctx, order)

	for _, dl := range p.DeadLetters() {
	    fmt.Println(dl.Type, dl.Reason)
	}

# Bounded State

Every read surface is backed by a fixed-capacity ring that keeps the most
recent entries, newest first: dead letters (50), flagged high-value orders
(20), recent aggregates (20) and notifications (50). Sizes are configurable
through Settings.

# Observability

Pass WithMetrics(observability.NewMetricsRecorder()) and
WithSpanManager(observability.NewSpanManager()) to emit OpenTelemetry
metrics and spans through the global providers. Both default to no-ops.
*/
package orderflow
