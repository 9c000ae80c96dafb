package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soilledger/soilmap/internal/geometry"
)

// minVertices is the fewest corners that enclose an area.
const minVertices = 3

// newAreaCmd builds the area subcommand. Vertices come from repeated
// --vertex flags, positional arguments, or both, in that order. Southern or
// western coordinates given positionally must follow "--" so they are not
// read as flags.
func newAreaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "area [--vertex LAT,LON]... [-- LAT,LON...]",
		Short: "Compute the geodesic area of a polygon or rectangle",
		Example: `  soilmap area --kind rectangle 37,-122 37,-122.001 37.001,-122.001 37.001,-122
  soilmap area -v -33.900,18.400 -v -33.900,18.410 -v -33.910,18.410
  soilmap area --kind polygon -- -33.900,18.400 -33.900,18.410 -33.910,18.410`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kindFlag, _ := cmd.Flags().GetString("kind")
			kind, err := geometry.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			flagged, _ := cmd.Flags().GetStringArray("vertex")
			vertices, err := parseVertices(append(flagged, args...))
			if err != nil {
				return err
			}
			if len(vertices) < minVertices {
				return fmt.Errorf("need at least %d vertices, got %d", minVertices, len(vertices))
			}
			return printArea(cmd.OutOrStdout(), geometry.Shape{Kind: kind, Vertices: vertices})
		},
	}
	cmd.Flags().StringP("kind", "k", string(geometry.Polygon), "Shape kind: polygon or rectangle")
	cmd.Flags().StringArrayP("vertex", "v", nil, "Vertex as LAT,LON; repeat for each corner")
	return cmd
}

func parseVertices(args []string) ([]geometry.LatLng, error) {
	out := make([]geometry.LatLng, 0, len(args))
	for _, arg := range args {
		lat, lon, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("vertex %q: want LAT,LON", arg)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil {
			return nil, fmt.Errorf("vertex %q: latitude: %w", arg, err)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
		if err != nil {
			return nil, fmt.Errorf("vertex %q: longitude: %w", arg, err)
		}
		out = append(out, geometry.LatLng{Lat: la, Lon: lo})
	}
	return out, nil
}

func printArea(w io.Writer, s geometry.Shape) error {
	m2, err := geometry.ComputeArea(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s area\n", s.Kind.Title())
	fmt.Fprintf(w, "  square metres: %.1f\n", m2)
	fmt.Fprintf(w, "  acres:         %.2f\n", geometry.ToAcres(m2))
	fmt.Fprintf(w, "  hectares:      %.4f\n", geometry.ToHectares(m2))
	return nil
}
