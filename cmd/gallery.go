package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/facematch"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage enrolled identities",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

var galleryDeleteCmd = &cobra.Command{
	Use:   "delete <name-or-id>",
	Short: "Remove an identity and its attendance history",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryDelete,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryDeleteCmd)
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := newBackendClient(loadConfig(cmd))
	if err != nil {
		return err
	}

	identities, err := client.ListIdentities(ctx)
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		fmt.Println("No identities enrolled.")
		return nil
	}

	slices.SortFunc(identities, func(a, b backend.Identity) int {
		return strings.Compare(facematch.NormalizePersonName(a.Name), facematch.NormalizePersonName(b.Name))
	})

	fmt.Printf("%-36s  %-24s  %5s  %s\n", "ID", "NAME", "DIM", "ENROLLED")
	for _, identity := range identities {
		fmt.Printf("%-36s  %-24s  %5d  %s\n",
			identity.ID, identity.Name, len(identity.Embedding), identity.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("\nTotal: %d\n", len(identities))
	return nil
}

func runGalleryDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := newBackendClient(loadConfig(cmd))
	if err != nil {
		return err
	}

	identity, err := resolveIdentity(ctx, client, args[0])
	if err != nil {
		return err
	}
	if err := client.DeleteIdentity(ctx, identity.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s (%s)\n", identity.Name, identity.ID)
	return nil
}

// resolveIdentity finds an identity by ID or by name, ignoring case and diacritics
func resolveIdentity(ctx context.Context, client *backend.Client, ref string) (*backend.Identity, error) {
	identities, err := client.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(identities))
	for i, identity := range identities {
		if identity.ID == ref {
			return &identities[i], nil
		}
		names[i] = identity.Name
	}
	if i := facematch.FindIdentityByName(names, ref); i >= 0 {
		return &identities[i], nil
	}
	return nil, fmt.Errorf("no identity matches %q", ref)
}
