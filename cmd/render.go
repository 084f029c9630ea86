package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/render"
)

func newRenderCmd(g *globalFlags) *cobra.Command {
	f := &simFlags{}
	var (
		out    string
		width  int
		height int
		bounds bool
		margin float64
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run a session and write the final viewport as a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ink.RequirePositive("render", "width", width); err != nil {
				return err
			}
			if err := ink.RequirePositive("render", "height", height); err != nil {
				return err
			}

			s, err := openSession(g, f)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := s.file.RenderOptions()
			if cmd.Flags().Changed("bounds") {
				opts.ShowBounds = bounds
			}
			if cmd.Flags().Changed("margin") {
				opts.Margin = margin
			}
			r, err := render.NewRenderer(opts)
			if err != nil {
				return err
			}

			rep, err := s.run(cmd.Context(), f)
			if err != nil {
				return err
			}
			frame := s.surface.Frame(rep.Viewport)

			target := render.NewPixmapTarget(width, height)
			res := r.Render(target, frame.Viewport, frame.Geometry)

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := target.WritePNG(file); err != nil {
				_ = file.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d strokes drawn, %d triangles, %d skipped, %d bad colors\n",
				out, res.Drawn, res.Triangles, res.Skipped, res.BadColors)
			return err
		},
	}

	f.bind(cmd.Flags(), 2000)
	cmd.Flags().StringVarP(&out, "out", "o", "ink.png", "output PNG file")
	cmd.Flags().IntVar(&width, "width", 960, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 540, "image height in pixels")
	cmd.Flags().BoolVar(&bounds, "bounds", false, "outline stroke bounding boxes (overrides render.show_bounds)")
	cmd.Flags().Float64Var(&margin, "margin", 0, "widen the view and outline the viewport (overrides render.margin)")

	return cmd
}
