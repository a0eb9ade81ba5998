package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/queue"
	"github.com/kashifkhan1020/KamiNewMods/internal/resolve"
	"github.com/kashifkhan1020/KamiNewMods/internal/worker"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var linkOpts intake.LinkRequest

var addLinkCmd = &cobra.Command{
	Use:   "add-link [url]",
	Short: "Publish a remote download link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st, svc := openCatalog(ctx, nil)
		defer st.Close()

		req := linkOpts
		req.Link = args[0]
		item, err := svc.AddLink(ctx, req)
		if err != nil {
			logger.Fatal("Failed to add link", zap.Error(err))
		}
		logger.Info("Link published",
			zap.String("id", item.ID.String()),
			zap.String("share", resolve.ShareLink(item)))
	},
}

var (
	importJob queue.ImportJob
	importNow bool
)

var importCmd = &cobra.Command{
	Use:   "import [url]",
	Short: "Turn a web page into a hosted article",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		job := importJob
		job.URL = args[0]

		if importNow {
			st, svc := openCatalog(ctx, nil)
			defer st.Close()
			w := worker.NewWorker(nil, svc, logger, nil)
			item, err := w.Import(ctx, job)
			if err != nil {
				logger.Fatal("Import failed", zap.Error(err))
			}
			logger.Info("Article imported",
				zap.String("id", item.ID.String()),
				zap.String("title", item.Article.Title),
				zap.String("share", resolve.ShareLink(item)))
			return
		}

		// Queue only; the server's workers own Badger.
		rdb := newRedis()
		defer rdb.Close()
		if err := queue.NewRedisQueue(rdb).Push(ctx, job); err != nil {
			logger.Fatal("Failed to queue import", zap.Error(err))
		}
		logger.Info("Article queued", zap.String("url", job.URL))
	},
}

var listKind string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosted items, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		var kind model.Kind
		if listKind != "" {
			k, err := model.ParseKind(listKind)
			if err != nil {
				logger.Fatal("Bad --kind", zap.Error(err))
			}
			kind = k
		}

		ctx := context.Background()
		st, _ := openCatalog(ctx, nil)
		defer st.Close()

		items, err := st.List(ctx, kind)
		if err != nil {
			logger.Fatal("Failed to list items", zap.Error(err))
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tSLUG\tNAME\tCREATED\tLINK")
		for i := range items {
			it := &items[i]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, it.Kind, it.Slug, it.Name, it.CreatedAt.Format("2006-01-02 15:04"), resolve.ShareLink(it))
		}
		tw.Flush()
	},
}

var deleteSecret string

var deleteCmd = &cobra.Command{
	Use:   "delete [kind] [id]",
	Short: "Delete an item and its files (needs the admin secret)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := model.ParseKind(args[0])
		if err != nil {
			logger.Fatal("Bad kind", zap.Error(err))
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			logger.Fatal("Invalid ID", zap.Error(err))
		}
		if err := newGate().Check(deleteSecret); err != nil {
			logger.Fatal("Delete refused", zap.Error(err))
		}

		ctx := context.Background()
		st, svc := openCatalog(ctx, nil)
		defer st.Close()
		removed, err := svc.Remove(ctx, kind, id)
		if err != nil {
			logger.Fatal("Delete failed", zap.Error(err))
		}
		logger.Info("Deleted", zap.String("id", removed.ID.String()), zap.String("name", removed.Name))
	},
}

var (
	combineHTML, combineCSS, combineJS string
	combineTitle, combineOut           string
)

func readOptional(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("Failed to read source", zap.String("path", path), zap.Error(err))
	}
	return string(data)
}

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Combine HTML, CSS and JS files into one document",
	Run: func(cmd *cobra.Command, args []string) {
		site := model.Website{
			HTML: readOptional(combineHTML),
			CSS:  readOptional(combineCSS),
			JS:   readOptional(combineJS),
		}
		if strings.TrimSpace(site.HTML+site.CSS+site.JS) == "" {
			logger.Fatal("Please enter some code to combine!")
		}

		c := resolve.Compose(site, combineTitle)
		if len(c.Missing) > 0 {
			logger.Warn("Sources left out: insertion points not found", zap.Strings("missing", c.Missing))
		}
		if combineOut == "" || combineOut == "-" {
			fmt.Print(c.HTML)
			return
		}
		if err := os.WriteFile(combineOut, []byte(c.HTML), 0o644); err != nil {
			logger.Fatal("Failed to write output", zap.Error(err))
		}
		logger.Info("Combined project written", zap.String("path", combineOut), zap.Bool("wrapped", c.Wrapped))
	},
}

func init() {
	addLinkCmd.Flags().StringVar(&linkOpts.Name, "name", "", "Display name (defaults to the link's file name)")
	addLinkCmd.Flags().StringVar(&linkOpts.Category, "category", "", "Category, e.g. APK, Games, Tools")
	addLinkCmd.Flags().StringVar(&linkOpts.SizeLabel, "size", "", "Size label shown to visitors")
	addLinkCmd.Flags().StringVar(&linkOpts.Description, "description", "", "Short description")
	addLinkCmd.Flags().StringVar(&linkOpts.Slug, "slug", "", "Optional human-readable alias")

	importCmd.Flags().StringVar(&importJob.Slug, "slug", "", "Optional alias for the article")
	importCmd.Flags().StringVar(&importJob.Category, "category", "", "Article category")
	importCmd.Flags().BoolVar(&importNow, "now", false, "Import synchronously instead of queueing (server must be stopped)")

	listCmd.Flags().StringVar(&listKind, "kind", "", "Only list one kind")

	deleteCmd.Flags().StringVar(&deleteSecret, "secret", os.Getenv("KAMIX_DELETE_SECRET"), "Admin secret")

	combineCmd.Flags().StringVar(&combineHTML, "html", "", "HTML file")
	combineCmd.Flags().StringVar(&combineCSS, "css", "", "CSS file")
	combineCmd.Flags().StringVar(&combineJS, "js", "", "JavaScript file")
	combineCmd.Flags().StringVar(&combineTitle, "title", "", "Title used when the HTML is a fragment")
	combineCmd.Flags().StringVarP(&combineOut, "out", "o", "", "Output file (default stdout)")
}
