// Package download provides the orchestration logic for crawling the
// painting catalog and fetching the zoomable images of the Palace Museum.
//
// # Manager
//
// The Manager runs the phases of a batch for one source site:
//
//  1. FetchCatalog: page through the painting list into the catalog CSV
//  2. FetchDetails: enrich catalog rows from detail pages
//  3. GenerateDescriptors: write Deep Zoom descriptor files
//  4. DownloadImages: run the tile downloader for every descriptor and
//     optionally write thumbnails
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = manager.DownloadImages(ctx, nil) // every catalog painting
//
// # Ordering
//
// Paintings are processed strictly one after another, in catalog order.
// A failing painting is reported with its id and the batch continues;
// cancelling the context stops before the next painting and kills a running
// downloader process.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// GetProgress returns the painting counters of the running phase.
package download
