// Package nbgallery builds a static gallery website from a directory of
// marimo notebooks.
//
// # Quick Start
//
// Build the collection, then generate the site from the resulting index:
//
//	b := nbgallery.NewBuilder(nbgallery.WithWorkers(4))
//	report, err := b.Build(ctx, "notebooks", "_site")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	site, err := nbgallery.NewSite(nbgallery.WithSiteInfo(nbgallery.SiteInfo{
//	    Title: "Analyses",
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := site.Generate(ctx, report.Index, "_site"); err != nil {
//	    log.Fatal(err)
//	}
//
// The two steps are independent: the index written by Build can be loaded
// later with LoadIndex and rendered again without converting anything.
//
// # Build Pipeline
//
// Every notebook goes through these stages:
//
//  1. Metadata extraction from "# title:", "# description:", "# tags:" and
//     "# date:" comment lines
//  2. Static HTML export via the marimo CLI (and html-wasm when enabled)
//  3. Export verification (file present, non-empty, an HTML document)
//  4. Source copy next to the export
//  5. Optional thumbnail and PDF snapshot via headless Chrome (go-rod)
//
// A notebook whose export fails is skipped or aborts the build, depending on
// WithErrorPolicy. Unreadable notebooks always abort.
//
// # Site Generation
//
// Site renders index.html with search and tag filtering, one
// view_<stem>.html per notebook with related notebooks and highlighted
// source, the static/ directory and, when a base URL is set, sitemap.xml
// and robots.txt.
//
// # Custom Assets
//
// Override templates and add static files with WithAssetDirs:
//
//	site, err := nbgallery.NewSite(nbgallery.WithAssetDirs("theme/templates", "theme/static"))
//
// Templates are looked up by name (layout.html, index.html, notebook.html)
// and fall back to the embedded ones. Static files overlay the embedded set.
//
// # Browser Requirements
//
// Snapshots require Chrome/Chromium. The go-rod library downloads a managed
// Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package nbgallery
