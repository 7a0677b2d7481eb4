package version

// Version is overridden at build time with -ldflags "-X github.com/IMINABO1/Vault/version.Version=..."
var Version = "0.1.0"
