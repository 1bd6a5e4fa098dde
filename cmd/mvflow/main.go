// Command mvflow synthesizes intermediate frames of an MPEG-1 stream from
// block motion vectors and reports block distortion metrics.
//
// Usage:
//
//	mvflow interp [options] <input.mpg>    Interpolate between frames n and n+1
//	mvflow blend [options] <input.mpg>     Cross-fade frames n and n+1
//	mvflow metrics [options] <input.mpg>   Zero-motion SAD/SATD between frames n and n+1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/deepteams/mvflow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "interp":
		err = runInterp(ctx, os.Args[2:])
	case "blend":
		err = runBlend(os.Args[2:])
	case "metrics":
		err = runMetrics(os.Args[2:], os.Stdout)
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "mvflow: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "mvflow: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  mvflow interp [options] <input.mpg>    Interpolate between frames n and n+1
  mvflow blend [options] <input.mpg>     Cross-fade frames n and n+1
  mvflow metrics [options] <input.mpg>   Zero-motion SAD/SATD between frames n and n+1

Use "-" as input to read from stdin, "-o -" to write PNG to stdout.

Run "mvflow <command> -h" for command-specific options.
`)
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned (caller should not close).
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// setup loads the configuration and returns a logger tagged with a fresh
// run id.
func setup(configPath string) (Config, *log.Entry, error) {
	cfg, err := GetConfig(configPath)
	if err != nil {
		return Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := setupLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return Config{}, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logger.WithField("run", uuid.NewString()), nil
}

// defaultOutput derives "<input>-<frame>.png" from the input path.
func defaultOutput(inputPath, suffix string, frame int) string {
	base := "output"
	if inputPath != "-" {
		base = strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	}
	return fmt.Sprintf("%s-%s%d.png", base, suffix, frame)
}

func readPair(inputPath string, frame int) (*yuvFrame, *yuvFrame, error) {
	in, err := openInput(inputPath)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()
	return readFramePair(in, frame)
}

// --- interp ---

func runInterp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("interp", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	vectorsPath := fs.String("vectors", "", "YAML block vector file (default: no motion)")
	t := fs.Int("t", 128, "time fraction 0-256 (0 = frame n, 256 = frame n+1)")
	mode := fs.String("mode", "flow", "kernel: flow/extra/simple/blend")
	frame := fs.Int("frame", 0, "index of the first frame")
	output := fs.String("o", "", `output path, .png or .tiff (default: <input>-interp<frame>.png, "-" for stdout)`)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("interp: missing input file\nUsage: mvflow interp [options] <input.mpg>")
	}
	inputPath := fs.Arg(0)

	m, err := mvflow.ParseMode(*mode)
	if err != nil {
		return fmt.Errorf("interp: %w", err)
	}
	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}

	start := time.Now()
	a, b, err := readPair(inputPath, *frame)
	if err != nil {
		return fmt.Errorf("interp: %w", err)
	}

	var (
		g        mvflow.GridGeometry
		bwd, fwd *mvflow.Grid
	)
	if *vectorsPath != "" {
		g, bwd, fwd, err = loadVectors(*vectorsPath)
	} else {
		g, bwd, fwd, err = zeroVectors(a.Y.Width, a.Y.Height, cfg.BlockW, cfg.BlockH)
	}
	if err != nil {
		return fmt.Errorf("interp: %w", err)
	}

	out, err := interpolateFrames(ctx, cfg, logger, a, b, g, bwd, fwd, *t, m)
	if err != nil {
		return fmt.Errorf("interp: %w", err)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutput(inputPath, "interp", *frame)
	}
	if err := writeFrame(outputPath, out); err != nil {
		return fmt.Errorf("interp: %w", err)
	}
	logger.WithFields(log.Fields{
		"input":   inputPath,
		"output":  outputPath,
		"frame":   *frame,
		"time":    *t,
		"mode":    m.String(),
		"elapsed": time.Since(start).String(),
	}).Info("interpolated frame")
	return nil
}

// interpolateFrames synthesizes the frame at time t between a (frame n) and
// b (frame n+1). Frame n is the forward reference, so t = 0 reproduces it.
func interpolateFrames(ctx context.Context, cfg Config, logger log.FieldLogger, a, b *yuvFrame,
	g mvflow.GridGeometry, bwd, fwd *mvflow.Grid, t int, mode mvflow.Mode) (*yuvFrame, error) {
	ip, err := mvflow.New(g, mvflow.Options{
		Time:     t,
		Mode:     mode,
		Pel:      cfg.Pel,
		MaskNorm: cfg.MaskNorm,
		Gamma:    cfg.Gamma,
		Workers:  cfg.Workers,
		BandRows: cfg.BandRows,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	// Overshoot fields read at twice the displacement.
	dx, dy := maxDisplacement(cfg.Pel, bwd, fwd)
	pad := max(cfg.Padding, 2*max(dx, dy)+2)

	srcF, srcB := a.planes(), b.planes()
	refB := make([]*mvflow.RefPlane, len(srcB))
	refF := make([]*mvflow.RefPlane, len(srcF))
	for i := range srcF {
		if refF[i], err = mvflow.NewReference(srcF[i], cfg.Pel, pad, pad); err != nil {
			return nil, err
		}
		if refB[i], err = mvflow.NewReference(srcB[i], cfg.Pel, pad, pad); err != nil {
			return nil, err
		}
	}

	out, err := newYUVFrame(a.Y.Width, a.Y.Height)
	if err != nil {
		return nil, err
	}
	if err := ip.Interpolate(ctx, out.planes(), refB, refF, bwd, fwd); err != nil {
		return nil, err
	}
	return out, nil
}

// --- blend ---

func runBlend(args []string) error {
	fs := flag.NewFlagSet("blend", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	t := fs.Int("t", 128, "time fraction 0-256 (0 = frame n, 256 = frame n+1)")
	frame := fs.Int("frame", 0, "index of the first frame")
	output := fs.String("o", "", `output path, .png or .tiff (default: <input>-blend<frame>.png, "-" for stdout)`)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("blend: missing input file\nUsage: mvflow blend [options] <input.mpg>")
	}
	inputPath := fs.Arg(0)

	_, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	a, b, err := readPair(inputPath, *frame)
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	out, err := blendFrames(a, b, *t)
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutput(inputPath, "blend", *frame)
	}
	if err := writeFrame(outputPath, out); err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	logger.WithFields(log.Fields{"input": inputPath, "output": outputPath, "time": *t}).Info("blended frame")
	return nil
}

func blendFrames(a, b *yuvFrame, t int) (*yuvFrame, error) {
	out, err := newYUVFrame(a.Y.Width, a.Y.Height)
	if err != nil {
		return nil, err
	}
	pa, pb := a.planes(), b.planes()
	for i, dst := range out.planes() {
		if err := mvflow.Blend(dst, pa[i], pb[i], t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- metrics ---

func runMetrics(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	bs := fs.String("bs", "8x8", "block size WxH")
	frame := fs.Int("frame", 0, "index of the first frame")
	norm := fs.Uint("norm", 64, "SAD to confidence scale, in 1/1024")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("metrics: missing input file\nUsage: mvflow metrics [options] <input.mpg>")
	}
	inputPath := fs.Arg(0)

	w, h, err := parseBlockSize(*bs)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	_, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	a, b, err := readPair(inputPath, *frame)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	rep, err := blockMetrics(a.Y, b.Y, w, h, uint32(*norm))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	rep.print(stdout)
	logger.WithFields(log.Fields{"input": inputPath, "frame": *frame, "blocks": rep.Blocks}).Info("computed metrics")
	return nil
}

// parseBlockSize parses "WxH".
func parseBlockSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("block size %q is not WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("block size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("block size %q: %w", s, err)
	}
	return w, h, nil
}

// metricsReport summarizes the zero-motion distortion between two planes.
type metricsReport struct {
	BlockW, BlockH int
	Blocks         int
	SADSum, SADMax uint64
	HasSATD        bool
	SATDSum        uint64
	SATDMax        uint64
	// Confidence holds the SADToConfidence histogram in 8 bins of 32.
	Confidence [8]int
	PSNR, SSIM float64
}

// blockMetrics scores every whole w x h block of a against b at zero
// displacement. SATD is skipped for sizes it does not support.
func blockMetrics(a, b *mvflow.Plane, w, h int, norm uint32) (*metricsReport, error) {
	if a.Width != b.Width || a.Height != b.Height || a.BitDepth != b.BitDepth {
		return nil, fmt.Errorf("%w: frames differ in size", mvflow.ErrDimensionMismatch)
	}
	sad, err := mvflow.SADFunc(w, h, a.BitDepth)
	if err != nil {
		return nil, err
	}
	satd, err := mvflow.SATDFunc(w, h, a.BitDepth)
	if err != nil && !errors.Is(err, mvflow.ErrInvalidBlockSize) {
		return nil, err
	}
	rep := &metricsReport{BlockW: w, BlockH: h, HasSATD: satd != nil}
	if rep.PSNR, err = mvflow.PSNR(a, b); err != nil {
		return nil, err
	}
	if rep.SSIM, err = mvflow.SSIM(a, b); err != nil {
		return nil, err
	}
	bps := a.BitDepth / 8
	for by := 0; by+h <= a.Height; by += h {
		for bx := 0; bx+w <= a.Width; bx += w {
			oa := by*a.Pitch + bx*bps
			ob := by*b.Pitch + bx*bps
			s := sad(a.Pix[oa:], a.Pitch, b.Pix[ob:], b.Pitch)
			rep.SADSum += uint64(s)
			rep.SADMax = max(rep.SADMax, uint64(s))
			rep.Confidence[mvflow.SADToConfidence(s, norm)>>5]++
			if satd != nil {
				d := satd(a.Pix[oa:], a.Pitch, b.Pix[ob:], b.Pitch)
				rep.SATDSum += uint64(d)
				rep.SATDMax = max(rep.SATDMax, uint64(d))
			}
			rep.Blocks++
		}
	}
	return rep, nil
}

func (r *metricsReport) print(w io.Writer) {
	fmt.Fprintf(w, "PSNR:       %.2f dB\n", r.PSNR)
	fmt.Fprintf(w, "SSIM:       %.4f\n", r.SSIM)
	fmt.Fprintf(w, "blocks:     %d (%dx%d)\n", r.Blocks, r.BlockW, r.BlockH)
	if r.Blocks == 0 {
		return
	}
	fmt.Fprintf(w, "SAD:        mean %.1f  max %d\n", float64(r.SADSum)/float64(r.Blocks), r.SADMax)
	if r.HasSATD {
		fmt.Fprintf(w, "SATD:       mean %.1f  max %d\n", float64(r.SATDSum)/float64(r.Blocks), r.SATDMax)
	} else {
		fmt.Fprintf(w, "SATD:       n/a for %dx%d\n", r.BlockW, r.BlockH)
	}
	fmt.Fprintf(w, "confidence:")
	for i, n := range r.Confidence {
		fmt.Fprintf(w, " [%d-%d]=%d", i*32, i*32+31, n)
	}
	fmt.Fprintln(w)
}
