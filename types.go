package toolrouter

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/coordinator"
	"github.com/wagiedev/voice-tool-router/internal/flags"
	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/protocol"
	"github.com/wagiedev/voice-tool-router/internal/registry"
)

// Message model.
type (
	// ToolDescriptor names a tool and describes its input.
	ToolDescriptor = message.ToolDescriptor

	// ToolCallRequest asks for a tool to be run with arguments.
	ToolCallRequest = message.ToolCallRequest

	// ToolCallResponse carries a tool's content blocks.
	ToolCallResponse = message.ToolCallResponse

	// ContentBlock is a text or data block of a response.
	ContentBlock = message.ContentBlock

	// TextBlock is plain text content.
	TextBlock = message.TextBlock

	// DataBlock is base64 encoded binary content with a MIME type.
	DataBlock = message.DataBlock

	// Value is a decoded JSON value.
	Value = message.Value

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// Routing and migration.
type (
	// ConnectionState is the protocol client's connection state.
	ConnectionState = protocol.ConnectionState

	// MigrationState selects how tools are routed between the two paths.
	MigrationState = flags.MigrationState

	// Category groups tools for migration control.
	Category = flags.Category

	// Path names an execution path.
	Path = flags.Path

	// ToolExecution is one recorded tool call.
	ToolExecution = flags.ToolExecution

	// Status is a point-in-time view of the migration engine.
	Status = flags.Status

	// Event is a migration engine notification.
	Event = flags.Event

	// Result describes one routed execution.
	Result = coordinator.Result

	// LegacyExecutor runs a tool on the legacy path.
	LegacyExecutor = coordinator.LegacyExecutor

	// LegacyFunc adapts a function to LegacyExecutor.
	LegacyFunc = coordinator.LegacyFunc

	// ToolFunc implements a tool in terms of the message model.
	ToolFunc = registry.Func

	// ToolServer is a source of tools mounted into the router.
	ToolServer = backend.ToolServer

	// ServerStatus is the mount outcome of one tool server.
	ServerStatus = backend.ServerStatus
)

// Migration states.
const (
	StateLegacy          = flags.StateLegacy
	StateHybrid          = flags.StateHybrid
	StateNewWithFallback = flags.StateNewWithFallback
	StateNewOnly         = flags.StateNewOnly
)

// Tool categories.
const (
	CategoryLocation  = flags.CategoryLocation
	CategoryTravel    = flags.CategoryTravel
	CategorySearch    = flags.CategorySearch
	CategorySafety    = flags.CategorySafety
	CategoryCalendar  = flags.CategoryCalendar
	CategoryTransport = flags.CategoryTransport
	CategoryDiscovery = flags.CategoryDiscovery
)

// Execution paths.
const (
	PathNew    = flags.PathNew
	PathLegacy = flags.PathLegacy
)

// TextResponse returns a successful response with one text block.
func TextResponse(text string) ToolCallResponse { return message.TextResponse(text) }

// ErrorResponse returns a failed response with one text block.
func ErrorResponse(msg string) ToolCallResponse { return message.ErrorResponse(msg) }

// ObjectSchema builds an object schema from property schemas.
func ObjectSchema(props map[string]*Schema, required ...string) *Schema {
	return message.ObjectSchema(props, required...)
}

// Property builds a property schema of type typ.
func Property(typ, description string, opts ...message.PropertyOption) *Schema {
	return message.Property(typ, description, opts...)
}

// SimpleSchema creates an object schema from a name to Go type map such as
// {"city": "string", "days": "int"}.
func SimpleSchema(props map[string]string) *Schema {
	return message.SimpleSchema(props)
}
