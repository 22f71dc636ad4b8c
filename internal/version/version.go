package version

import "github.com/GuillermoSiaira/simpleswap-cli/internal/model"

var (
	CLIName    = "simpleswap"
	CLIVersion = "0.1.0"
	Commit     = "unknown"
	BuildDate  = "unknown"
)

// Info bundles the build identity for the version command.
func Info() model.VersionInfo {
	return model.VersionInfo{Version: CLIVersion, Commit: Commit, Date: BuildDate}
}
