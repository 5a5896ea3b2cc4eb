// Package cli is the imgcow command line: one-shot transform and info
// commands, an interactive editor and self-update.
package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Fepozopo/imgcow/pkg/config"
	"github.com/Fepozopo/imgcow/pkg/crops"
	"github.com/Fepozopo/imgcow/pkg/raster"
	"github.com/Fepozopo/imgcow/pkg/session"
	"github.com/Fepozopo/imgcow/pkg/transform"
)

type rootFlags struct {
	presets  string
	backend  string
	logLevel string
	cfg      config.Config
}

// NewRootCmd builds the imgcow command tree.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "imgcow",
		Short: "Resize, crop and convert images with a compact transform language",
		Long: `imgcow transforms images with strings such as

  resizecrop,300,200,Entropy|format,webp|quality,80

Lengths accept pixels or percentages, positions accept left/center/right,
top/middle/bottom with offsets ("right-20px"), and crops can be placed by the
Entropy, Balanced, Face or Smart strategies.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return f.load(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&f.presets, "presets", "", "YAML file with named presets and rules (default $IMGCOW_PRESETS)")
	cmd.PersistentFlags().StringVar(&f.backend, "backend", "", fmt.Sprintf("image engine: auto, %s", strings.Join(raster.Names(), ", ")))
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(newTransformCmd(f), newInfoCmd(f), newReplCmd(f), newOpsCmd(), newUpdateCmd())
	return cmd
}

// load resolves configuration and installs the logger. Flags win over the
// environment.
func (f *rootFlags) load(cmd *cobra.Command) error {
	cfg, err := config.Load(f.presets)
	if err != nil {
		return err
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.logLevel != "" {
		if cfg.LogLevel, err = config.ParseLevel(f.logLevel); err != nil {
			return err
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})))
	f.cfg = cfg
	return nil
}

// open loads path with the configured engine, quality and background.
func (f *rootFlags) open(path string) (*session.Session, func(), error) {
	opts, done, err := f.cfg.SessionOptions()
	if err != nil {
		return nil, nil, err
	}
	s, err := session.FromFile(path, opts...)
	if err != nil {
		done()
		return nil, nil, err
	}
	if err := f.cfg.Apply(s); err != nil {
		s.Close()
		done()
		return nil, nil, err
	}
	return s, func() { s.Close(); done() }, nil
}

type transformFlags struct {
	ops           string
	rules         string
	clientWidth   int
	clientHeight  int
	dpr           string
	viewportWidth string
	widthHint     string
	quality       int
	background    string
	progressive   bool
	autoRotate    bool
}

func newTransformCmd(root *rootFlags) *cobra.Command {
	f := &transformFlags{}
	cmd := &cobra.Command{
		Use:   "transform <input> <output>",
		Short: "Apply a transform string or preset and write the result",
		Example: `  imgcow transform in.jpg out.webp --ops "resizecrop,300,200,Entropy|format,webp"
  imgcow transform in.jpg out.jpg --ops thumb --presets presets.yaml
  imgcow transform in.jpg out.jpg --rules "max-width=600:resize,600;min-width=601:resize,1200" --client-width 800 --client-height 600`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, root, f, args[0], args[1])
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.ops, "ops", "", "transform string or preset name")
	fl.StringVar(&f.rules, "rules", "", "responsive rules or rule set name, applied after --ops")
	fl.IntVar(&f.clientWidth, "client-width", 0, "client width for --rules")
	fl.IntVar(&f.clientHeight, "client-height", 0, "client height for --rules")
	fl.StringVar(&f.dpr, "dpr", "", "client hint: device pixel ratio")
	fl.StringVar(&f.viewportWidth, "viewport-width", "", "client hint: viewport width")
	fl.StringVar(&f.widthHint, "width-hint", "", "client hint: rendered width")
	fl.IntVar(&f.quality, "quality", -1, "compression quality 0-100 (default from config)")
	fl.StringVar(&f.background, "background", "", "background colour for flattening, e.g. #ffffff")
	fl.BoolVar(&f.progressive, "progressive", false, "write progressive/interlaced output")
	fl.BoolVar(&f.autoRotate, "auto-rotate", false, "apply the EXIF orientation first")
	return cmd
}

func runTransform(cmd *cobra.Command, root *rootFlags, f *transformFlags, in, out string) error {
	if f.ops == "" && f.rules == "" {
		return errors.New("nothing to do: pass --ops and/or --rules")
	}
	s, done, err := root.open(in)
	if err != nil {
		return err
	}
	defer done()

	hints := map[string]string{}
	for k, v := range map[string]string{session.HintDPR: f.dpr, session.HintViewportWidth: f.viewportWidth, session.HintWidth: f.widthHint} {
		if v != "" {
			hints[k] = v
		}
	}
	if err := s.SetClientHints(hints); err != nil {
		return err
	}
	if f.background != "" {
		c, err := config.ParseColor(f.background)
		if err != nil {
			return err
		}
		if err := s.Background(c); err != nil {
			return err
		}
	}
	if f.quality >= 0 {
		if err := s.Quality(f.quality); err != nil {
			return err
		}
	}
	if f.progressive {
		if err := s.Progressive(true); err != nil {
			return err
		}
	}
	if f.autoRotate {
		if err := s.AutoRotate(); err != nil {
			return err
		}
	}
	if f.ops != "" {
		if err := s.Transform(root.cfg.Ops(f.ops)); err != nil {
			return err
		}
	}
	if f.rules != "" {
		props := transform.ClientProperties{Width: f.clientWidth, Height: f.clientHeight}
		if err := s.TransformResponsive(root.cfg.ResponsiveRules(f.rules), props); err != nil {
			return err
		}
	}
	if err := s.Save(out); err != nil {
		return err
	}
	w, h, _ := s.Size()
	slog.Info("saved", "path", out, "size", strconv.Itoa(w)+"x"+strconv.Itoa(h), "engine", s.Engine())
	return nil
}

func newInfoCmd(root *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Show size, type, animation and EXIF metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := root.open(args[0])
			if err != nil {
				return err
			}
			defer done()
			info, err := Describe(s)
			if err != nil {
				return err
			}
			return WriteInfo(cmd.OutOrStdout(), info, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "text, json or yaml")
	return cmd
}

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List transform operations and crop strategies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, s := range transform.Specs {
				fmt.Fprintln(out, s.Help())
			}
			fmt.Fprintf(out, "Crop strategies: %s\n", strings.Join(crops.Names(), ", "))
			if !crops.DetectorAvailable() {
				fmt.Fprintln(out, "  (Face needs a build with -tags gocv)")
			}
		},
	}
}

func newReplCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [file]",
		Short: "Edit an image interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := NewREPL(root, NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), cmd.OutOrStdout())
			defer r.Close()
			if len(args) == 1 {
				if err := r.Open(args[0]); err != nil {
					return err
				}
			}
			return r.Run(cmd.Context())
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check GitHub for a newer release and install it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return CheckForUpdates(cmd.Context(), NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), cmd.OutOrStdout())
		},
	}
}
