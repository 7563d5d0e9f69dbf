// Package logtail reads the end of hostdiff's rotated JSON log file.
//
// The interactive client writes its logs to a file because the terminal is
// owned by the UI. Tail decodes the last lines of that file into Entry values
// so the log overlay can show them:
//
//	entries, err := logtail.Tail(cfg.LogPath(), 200)
//	for _, e := range entries {
//	    fmt.Println(e) // 15:04:05 WARN  hostdiff.poller host poll failed error=...
//	}
//
// Lines that are not JSON (for example a truncated final write) are returned
// verbatim in Entry.Raw.
package logtail
