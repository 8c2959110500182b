package commands

import (
	"os"

	"lms-scraper/internal/profile"
	"lms-scraper/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var profilesDir *string

func init() {
	profilesDir = profilesCmd.PersistentFlags().String("dir", "profiles", "directory holding portal profiles")
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	rootCmd.AddCommand(profilesCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect the available portal profiles.",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the portal profiles in the profile directory.",
	Run: func(cmd *cobra.Command, args []string) {
		loader := profile.NewLoader(*profilesDir)
		names, err := loader.List()
		if err != nil {
			serviceutil.Fatal("failed to list profiles", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"profile", "portal", "description"})
		for _, name := range names {
			p, err := loader.Load(name)
			if err != nil {
				t.AppendRow(table.Row{name, "", "unreadable: " + err.Error()})
				continue
			}
			t.AppendRow(table.Row{name, p.Metadata.Name, p.Metadata.Description})
		}
		t.Render()
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <profile>",
	Short: "Shows the resolved settings of one portal profile.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader := profile.NewLoader(*profilesDir)
		p, err := loader.Load(args[0])
		if err != nil {
			serviceutil.Fatal("failed to load profile", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"setting", "value"})
		t.AppendRows([]table.Row{
			{"name", p.Metadata.Name},
			{"login path", p.Auth.LoginPath},
			{"courses page", p.Navigation.CoursesPage},
			{"card selectors", len(p.Courses.Selectors)},
			{"link keywords", p.Courses.LinkKeywords},
			{"discovery order", p.Discovery.Order},
			{"activity types", len(p.Assignments.Types)},
			{"date patterns", len(p.Dates.Patterns)},
		})
		t.Render()
	},
}
