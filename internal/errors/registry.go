package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Capture Errors (F001-F019)
	// ============================================

	"F001": {
		Category: CategoryCapture,
		Message:  "Camera access denied",
		Detail:   "The capture device refused access. Keyboard control stays available.",
	},
	"F002": {
		Category: CategoryCapture,
		Message:  "Camera not found",
		Detail:   "No capture device matched the configured source.",
	},
	"F003": {
		Category: CategoryCapture,
		Message:  "Camera is busy",
		Detail:   "The capture device is already in use by another process.",
	},
	"F004": {
		Category: CategoryCapture,
		Message:  "Camera failed to start",
		Detail:   "The capture device did not become ready.",
	},
	"F010": {
		Category: CategoryCapture,
		Message:  "Frame encoding failed",
		Detail:   "A captured frame could not be compressed for sending.",
	},

	// ============================================
	// Connection Errors (F020-F039)
	// ============================================

	"F020": {
		Category: CategoryConnection,
		Message:  "Connection error",
		Detail:   "The websocket to the game server could not be established.",
	},
	"F021": {
		Category: CategoryConnection,
		Message:  "Disconnected from server",
		Detail:   "The websocket closed. A reconnect is scheduled automatically.",
	},
	"F022": {
		Category: CategoryConnection,
		Message:  "Invalid server origin",
		Detail:   "The server origin must be an http:// or https:// URL with a host.",
	},

	// ============================================
	// Protocol Errors (F040-F059)
	// ============================================

	"F040": {
		Category: CategoryProtocol,
		Message:  "Malformed server message",
		Detail:   "A message from the server was not a JSON object with a type.",
	},
	"F041": {
		Category: CategoryProtocol,
		Message:  "Unknown message type",
		Detail:   "The server sent a message type this client does not handle.",
	},
	"F042": {
		Category: CategoryProtocol,
		Message:  "Invalid game state",
		Detail:   "A game_state snapshot failed validation and was dropped.",
	},

	// ============================================
	// Config Errors (F060-F079)
	// ============================================

	"F060": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No faceflap.json was found in the project directory.",
	},
	"F061": {
		Category: CategoryConfig,
		Message:  "Config file could not be read",
		Detail:   "faceflap.json exists but could not be read or parsed.",
	},
	"F062": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range.",
	},

	// ============================================
	// CLI Errors (F080-F099)
	// ============================================

	"F080": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command-line flag could not be applied.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
