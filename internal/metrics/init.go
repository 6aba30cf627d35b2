package metrics

// Formats, modes and states are spelled out here rather than imported so the
// metrics package stays a leaf that playlist and player can depend on.
var (
	knownFormats  = []string{"m3u", "m3u8", "pls", "xspf", "json", "wpl"}
	knownModes    = []string{"sequential", "repeat_all", "repeat_one", "shuffle"}
	knownStates   = []string{"stopped", "playing", "paused", "finished"}
	knownOutcomes = []string{"played", "wrapped", "finished", "stale", "error"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, format := range knownFormats {
		for _, source := range []string{"file", "url"} {
			PlaylistLoadsTotal.WithLabelValues(format, source, "success")
			PlaylistLoadsTotal.WithLabelValues(format, source, "error")
			PlaylistLoadDuration.WithLabelValues(format, source)
		}
		PlaylistSavesTotal.WithLabelValues(format, "success")
		PlaylistSavesTotal.WithLabelValues(format, "error")
		PlaylistEntriesParsed.WithLabelValues(format)
		CodecParseFailures.WithLabelValues(format)
	}

	for _, mode := range knownModes {
		for _, outcome := range knownOutcomes {
			ControllerAdvancesTotal.WithLabelValues(mode, outcome)
		}
	}

	for _, state := range knownStates {
		ControllerState.WithLabelValues(state)
	}

	for _, op := range []string{"save_playlist", "load_playlist", "list_playlists",
		"delete_playlist", "begin_transaction", "commit", "rollback", "initialize_schema"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	SnapshotsTotal.WithLabelValues("success")
	SnapshotsTotal.WithLabelValues("error")

	for _, op := range []string{"stat", "read", "write"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}

// SetControllerState marks state as the active controller state.
func SetControllerState(state string) {
	for _, s := range knownStates {
		if s == state {
			ControllerState.WithLabelValues(s).Set(1)
		} else {
			ControllerState.WithLabelValues(s).Set(0)
		}
	}
}
