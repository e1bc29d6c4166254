package stats

// Merge combines the per-source ledgers into one, deduplicating plays that
// both exports report.
//
// The extended export is the canonical source of truth: every one of its
// plays is kept and its dedup keys are recorded. A play from the full
// export is discarded when its dedup key was already recorded by the
// extended export. The rule is "extended wins ties", not a symmetric set
// union.
//
// When only one ledger is supplied, Merge is the identity on that ledger.
// Accumulation on key collision is always additive; nothing is overwritten.
// The merged ledger takes ownership of the extended ledger's entries.
func Merge(extended, full *Ledger) *Ledger {
	if extended == nil && full == nil {
		return NewLedger(SourceExtended)
	}
	if extended == nil {
		return full
	}
	if full == nil {
		return extended
	}

	seen := make(map[string]struct{})
	for _, key := range extended.order {
		entry := extended.entries[key]
		for _, d := range entry.Timestamps {
			seen[entry.dedupKey(d)] = struct{}{}
		}
	}

	for _, key := range full.order {
		entry := full.entries[key]
		for _, d := range entry.Timestamps {
			if _, dup := seen[entry.dedupKey(d)]; dup {
				continue
			}
			extended.addDetail(key, d)
		}
	}

	return extended
}

// addDetail folds a single already-normalized play detail into the ledger,
// creating the entry if the track identity is new
func (l *Ledger) addDetail(key TrackKey, d PlayDetail) {
	entry, ok := l.entries[key]
	if !ok {
		entry = &TrackEntry{
			Artist: key.Artist,
			Album:  key.Album,
			Track:  key.Track,
		}
		l.entries[key] = entry
		l.order = append(l.order, key)
	}

	entry.MSPlayed += d.MSPlayed
	entry.Plays++
	entry.Timestamps = append(entry.Timestamps, d)
}
