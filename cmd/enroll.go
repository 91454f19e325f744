package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/detector"
	"github.com/kozaktomas/gatewatch/internal/facematch"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>...",
	Short: "Enroll people from portrait photos",
	Long: `Detect the single face in each image and add it to the gallery.
The person's name is taken from the file name ("jiri_novak.jpg" becomes
"jiri novak") unless --name is given for a single image. Names that are
already enrolled are skipped.

Examples:
  gatewatch enroll --name "Alice Smith" alice.jpg
  gatewatch enroll portraits/*.jpg --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Name of the person (single image only)")
	enrollCmd.Flags().Int("concurrency", 2, "Number of parallel detections")
}

var errNotOneFace = errors.New("image must contain exactly one face")

type enrollResult struct {
	path string
	name string
	id   string
	err  error
	skip bool
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	if name != "" && len(args) > 1 {
		return errors.New("--name can only be used with a single image")
	}
	concurrency := max(1, mustGetInt(cmd, "concurrency"))

	ctx := context.Background()
	cfg := loadConfig(cmd)
	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}
	det := detector.NewClient(cfg.Detector.URL, cfg.Detector.Timeout)

	gallery, err := client.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	var galleryMu sync.Mutex
	names := make([]string, 0, len(gallery))
	for _, identity := range gallery {
		names = append(names, identity.Name)
	}

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	results := make([]enrollResult, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range args {
		personName := name
		if personName == "" {
			personName = nameFromPath(path)
		}
		g.Go(func() error {
			defer bar.Add(1)
			res := enrollResult{path: path, name: personName}

			galleryMu.Lock()
			exists := facematch.FindIdentityByName(names, personName) >= 0
			if !exists {
				// reserve the name so a duplicate file in the same batch is skipped
				names = append(names, personName)
			}
			galleryMu.Unlock()
			if exists {
				res.skip = true
				results[i] = res
				return nil
			}

			identity, err := enrollOne(gctx, det, client, path, personName)
			res.err = err
			if identity != nil {
				res.id = identity.ID
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	fmt.Println()

	var enrolled, skipped, failed int
	for _, r := range results {
		switch {
		case r.skip:
			skipped++
			fmt.Printf("  skip  %-24s %s (already enrolled)\n", r.name, r.path)
		case r.err != nil:
			failed++
			fmt.Printf("  FAIL  %-24s %s: %v\n", r.name, r.path, r.err)
		default:
			enrolled++
			fmt.Printf("  ok    %-24s %s -> %s\n", r.name, r.path, r.id)
		}
	}
	fmt.Printf("\nEnrolled %d, skipped %d, failed %d\n", enrolled, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d image(s) could not be enrolled", failed)
	}
	return nil
}

func enrollOne(ctx context.Context, det *detector.Client, client *backend.Client, path, name string) (*backend.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	faces, err := det.DetectBytes(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(faces) != 1 {
		return nil, fmt.Errorf("%w, found %d", errNotOneFace, len(faces))
	}
	return client.CreateIdentity(ctx, name, faces[0].Embedding)
}

// nameFromPath derives a person's name from an image file name
func nameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return facematch.CleanDisplayName(base)
}
