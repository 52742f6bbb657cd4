package config

// Environment variables understood by the XTABLES client when no
// explicit option overrides them at construction time.
const (
	EnvServerAddress   = "XTABLES_SERVER_ADDRESS"
	EnvPushPort        = "XTABLES_PUSH_PORT"
	EnvReqPort         = "XTABLES_REQ_PORT"
	EnvSubPort         = "XTABLES_SUB_PORT"
	EnvBufferCapacity  = "XTABLES_BUFFER_CAPACITY"
	EnvGhostMode       = "XTABLES_GHOST_MODE"
	EnvDebug           = "XTABLES_DEBUG"
	EnvVersionSuffix   = "XTABLES_VERSION_SUFFIX"
	EnvRetryUntilFound = "XTABLES_RETRY_UNTIL_FOUND"
)

// Default modern-protocol ports (§6).
const (
	DefaultPushPort = 48800
	DefaultReqPort  = 48801
	DefaultSubPort  = 48802
)

// DefaultBufferCapacity is the coalescing ring's default capacity.
const DefaultBufferCapacity = 5000

// XTablesHostname is the fixed DNS name the resolver looks up (§4.A).
const XTablesHostname = "XTABLES.local"

// MDNSServiceType and MDNSInstanceName identify the service the resolver
// browses for when DNS resolution fails (§4.A, §6).
const (
	MDNSServiceType   = "_xtables._tcp.local."
	MDNSInstanceName  = "XTablesService"
)

// TempConnectionFileName is the cached-endpoint hint file's base name,
// joined with os.TempDir() by the discovery package.
const TempConnectionFileName = "PYTHON-XTABLES-TEMP-CONNECTION.tmp"

// ServerAddress returns the explicit server address from the environment,
// or "" if unset (meaning the resolver chain in §4.A should run).
func ServerAddress() string { return GetEnv(EnvServerAddress, "") }

// PushPort, ReqPort, SubPort return the configured port for each logical
// socket, defaulting to the modern protocol's fixed ports.
func PushPort() int { return GetEnvInt(EnvPushPort, DefaultPushPort) }
func ReqPort() int  { return GetEnvInt(EnvReqPort, DefaultReqPort) }
func SubPort() int  { return GetEnvInt(EnvSubPort, DefaultSubPort) }

// BufferCapacity returns the coalescing buffer's configured capacity.
func BufferCapacity() int { return GetEnvInt(EnvBufferCapacity, DefaultBufferCapacity) }

// GhostMode reports whether the telemetry responder should be disabled.
func GhostMode() bool { return GetEnvBool(EnvGhostMode, false) }

// Debug reports whether verbose decode-error/exception logging is enabled.
func Debug() bool { return GetEnvBool(EnvDebug, false) }

// VersionSuffix returns an optional suffix appended to the client version
// string reported in telemetry.
func VersionSuffix() string { return GetEnv(EnvVersionSuffix, "") }
