package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"svcd/config"
	"svcd/daemon"
	"svcd/logging"
	"svcd/registry"
)

const defaultConfigPath = "/etc/svcd.conf"

// runServe is rootCmd's RunE: it handles the --test dry-validation
// path, the --daemon background-detach path, and otherwise builds and
// runs the event loop in the foreground.
func runServe(cmd *cobra.Command, args []string) error {
	if svcdShowVer {
		printVersion("svcd")
		return nil
	}

	if svcdTest {
		return runConfigTest()
	}

	if svcdDaemon && !svcdForeground {
		detached, err := daemonize()
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if detached {
			// This is the parent; the re-exec'd child carries on alone.
			return nil
		}
	}

	d, err := daemon.New(daemon.Config{
		ConfigPath:   svcdConfig,
		PIDFile:      svcdPIDFile,
		AutostartGrp: svcdAutostart,
		Log:          logging.Default(),
	})
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Start()
}

// runConfigTest implements --test/-t: load and validate configuration
// without binding the control socket or spawning anything, reporting
// any parse errors.
func runConfigTest() error {
	store, err := config.Load(svcdConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", svcdConfig, err)
		return errUsage
	}

	if _, errs := registry.LoadFromStore(store); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s: %v\n", svcdConfig, e)
		}
		return errUsage
	}

	fmt.Printf("%s: configuration OK\n", svcdConfig)
	return nil
}
