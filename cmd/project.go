package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/streetworks-impact/internal/model"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage project records",
}

var (
	projectTitle  string
	projectSource string
	projectLon    float64
	projectLat    float64
	projectShape  []float64
	projectUSRN   int64
	projectStart  string
	projectEnd    string
	projectStartY int
	projectEndY   int
)

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := projectInput()
		if err != nil {
			return err
		}
		return withProjects(cmd, func(e *env) error {
			receipt, err := e.Projects.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), receipt, "json")
		})
	},
}

var projectGetCmd = &cobra.Command{
	Use:   "get <project_id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProjects(cmd, func(e *env) error {
			p, err := e.Projects.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), p, "json")
		})
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project_id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProjects(cmd, func(e *env) error {
			receipt, err := e.Projects.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), receipt, "json")
		})
	},
}

func withProjects(cmd *cobra.Command, fn func(e *env) error) error {
	if err := cfg.Validate("project"); err != nil {
		return err
	}
	e := &env{}
	defer e.Close()
	if err := initProjectStore(cmd.Context(), e, cfg); err != nil {
		return err
	}
	return fn(e)
}

// projectInput builds a create payload from flags. --shape takes a flat
// lon,lat,lon,lat,... list.
func projectInput() (model.ProjectInput, error) {
	in := model.ProjectInput{
		Title:               projectTitle,
		Source:              projectSource,
		GeometryCoordinates: []float64{projectLon, projectLat},
		Collaboration:       true,
	}
	if len(projectShape)%2 != 0 {
		return in, eris.Wrap(model.ErrInvalidInput, "--shape needs lon,lat pairs")
	}
	for i := 0; i < len(projectShape); i += 2 {
		in.GeoShapeCoordinates = append(in.GeoShapeCoordinates, [2]float64{projectShape[i], projectShape[i+1]})
	}
	if projectUSRN > 0 {
		usrn := projectUSRN
		in.USRN = &usrn
	}
	var err error
	if in.StartDate, err = flagDate("start", projectStart); err != nil {
		return in, err
	}
	if in.CompletionDate, err = flagDate("end", projectEnd); err != nil {
		return in, err
	}
	in.StartDateYY = flagYear(projectStartY, in.StartDate)
	in.CompletionDateYY = flagYear(projectEndY, in.CompletionDate)
	return in, nil
}

func flagDate(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, eris.Wrapf(model.ErrInvalidInput, "--%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

// flagYear prefers an explicit year flag, then the year of date.
func flagYear(year int, date *time.Time) int {
	if year == 0 && date != nil {
		return date.Year()
	}
	return year
}

func init() {
	f := projectCreateCmd.Flags()
	f.StringVar(&projectTitle, "title", "", "project title")
	f.StringVar(&projectSource, "source", "cli", "record source")
	f.Float64Var(&projectLon, "lon", 0, "longitude of the primary point")
	f.Float64Var(&projectLat, "lat", 0, "latitude of the primary point")
	f.Float64SliceVar(&projectShape, "shape", nil, "geo_shape vertices as lon,lat,lon,lat,...")
	f.Int64Var(&projectUSRN, "usrn", 0, "unique street reference number")
	f.StringVar(&projectStart, "start", "", "start date (YYYY-MM-DD)")
	f.StringVar(&projectEnd, "end", "", "completion date (YYYY-MM-DD)")
	f.IntVar(&projectStartY, "start-year", 0, "start year (defaults to the year of --start)")
	f.IntVar(&projectEndY, "end-year", 0, "completion year (defaults to the year of --end)")
	_ = projectCreateCmd.MarkFlagRequired("title")
	_ = projectCreateCmd.MarkFlagRequired("lon")
	_ = projectCreateCmd.MarkFlagRequired("lat")

	projectCmd.AddCommand(projectCreateCmd, projectGetCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
