package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// handleUsers lists the accounts that can log in over RDP.
func handleUsers(d *Deps, showAll bool) error {
	accounts, err := d.Users.Eligible()
	if showAll {
		accounts, err = d.Users.All()
	}
	if err != nil {
		if flagOutput == "json" {
			d.Printer.JSON(map[string]any{"ok": false, "error": err.Error()})
		} else {
			d.Printer.Error(fmt.Sprintf("user enumeration failed: %v", err))
		}
		return silentErr{err}
	}

	switch flagOutput {
	case "json":
		d.Printer.JSON(map[string]any{"ok": true, "users": accounts})
		return nil
	case "yaml":
		data, err := yaml.Marshal(accounts)
		if err != nil {
			return err
		}
		fmt.Fprint(d.Output, string(data))
		return nil
	}

	if len(accounts) == 0 {
		d.Printer.Warn("no eligible accounts found; create one with 'adduser <name>'")
		return nil
	}

	fmt.Fprintf(d.Output, "%-20s %-8s %-24s %s\n", "NAME", "UID", "HOME", "SHELL")
	for _, a := range accounts {
		fmt.Fprintf(d.Output, "%-20s %-8d %-24s %s\n", a.Name, a.UID, a.Home, a.Shell)
	}
	return nil
}

func init() {
	var showAll bool

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List accounts that can log in over RDP",
		Long: `List local accounts eligible for RDP login: regular users (UID >= 1000)
with a login shell and an existing home directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleUsers(newDeps(), showAll)
		},
	}

	usersCmd.Flags().BoolVar(&showAll, "all", false, "Include system and no-login accounts")

	rootCmd.AddCommand(usersCmd)
}
