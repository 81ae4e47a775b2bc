package utils

// ApplicationExecutionFailedMessage prefixes the fatal log line emitted when a command fails.
const ApplicationExecutionFailedMessage = "filebundler failed"

// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
const LoggerInitializationFailedMessageFormat = "initialize logger: %w"
