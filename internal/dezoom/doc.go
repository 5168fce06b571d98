// Package dezoom runs the external dezoomify-rs tile downloader.
//
// The executable is taken from the DEZOOMIFY_RS environment variable, then
// from the configured path, then "dezoomify-rs" on PATH. Arguments are passed
// directly to the process; no shell is involved.
//
//	r := dezoom.NewRunner(dezoom.Options{Retries: 10, Largest: true})
//	err := r.Run(ctx, "paintings/abc.xml", "paintings/abc.jpg", func(line string) {
//	    fmt.Println(line)
//	})
package dezoom
