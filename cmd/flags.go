package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// thresholdFlag returns --threshold when it was set, otherwise the configured value.
func thresholdFlag(cmd *cobra.Command, configured float64) float64 {
	if cmd.Flags().Changed("threshold") {
		return mustGetFloat64(cmd, "threshold")
	}
	return configured
}

// dayFlag parses --date, defaulting to today in the guard's time zone.
func dayFlag(cmd *cobra.Command, today func() ledger.Day) (ledger.Day, error) {
	raw := mustGetString(cmd, "date")
	if raw == "" {
		return today(), nil
	}
	day, err := ledger.ParseDay(raw)
	if err != nil {
		return ledger.Day{}, fmt.Errorf("invalid --date %q: %w", raw, err)
	}
	return day, nil
}
