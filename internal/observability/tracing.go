package observability

import "go.opentelemetry.io/otel"

// TracerName identifies spans created by the router.
const TracerName = "github.com/wagiedev/voice-tool-router"

// Tracer is resolved from the global provider at first use, so installing a
// provider with otel.SetTracerProvider later still takes effect.
var Tracer = otel.Tracer(TracerName)
