package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jrsteele09/go-tenant-admin/client"
	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newTenantsCmd(a *app) *cobra.Command {
	var (
		search string
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *client.Client) error {
				state := c.Session.State()
				if !state.IsAuthenticated() {
					return errNotLoggedIn
				}

				res, err := c.API.ListTenants(cmd.Context(), state.Token, search, offset, limit)
				if err != nil {
					var apiErr *api.Error
					if errors.As(err, &apiErr) {
						return errors.Errorf("list tenants: %s (HTTP %d)", apiErr.Message, apiErr.Status)
					}
					return errors.Wrap(err, "list tenants")
				}

				if len(res.Tenants) == 0 {
					fmt.Fprintln(a.out, "No tenants found.")
					return nil
				}

				tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSLUG\tNAME\tACTIVE\tCREATED")
				for _, t := range res.Tenants {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", t.ID, t.Slug, t.Name, t.Active, humanize.Time(t.CreatedAt))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if res.Offset+len(res.Tenants) < res.Total {
					fmt.Fprintf(a.out, "\n(%s of %s shown)\n", humanize.Comma(int64(len(res.Tenants))), humanize.Comma(int64(res.Total)))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match tenant name or slug")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many tenants")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (server default when 0)")
	return cmd
}
