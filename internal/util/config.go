package util

import "github.com/spf13/viper"

// GetReportsDir returns the directory error reports are written to
func GetReportsDir() string {
	dir := viper.GetString("reports")
	if dir == "" {
		dir = "reports"
	}
	return dir
}

// GetArtifactsDir returns the directory event logs are written to
func GetArtifactsDir() string {
	dir := viper.GetString("artifacts")
	if dir == "" {
		dir = "artifacts"
	}
	return dir
}

// GetDefaultOutcome returns the outcome name used for raw records that
// carry no explicit cytokine column
func GetDefaultOutcome() string {
	name := viper.GetString("outcome")
	if name == "" {
		name = "IL6"
	}
	return name
}
