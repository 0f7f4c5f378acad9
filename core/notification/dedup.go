package notification

// Deduplicator suppresses a second notification for a fact already
// emitted through a different subscription path (or re-delivered by the
// stream itself). It shares the Service's persisted admitted-id ledger,
// so a restart does not re-show history as new.
type Deduplicator struct {
	svc *Service
}

func NewDeduplicator(svc *Service) *Deduplicator {
	return &Deduplicator{svc: svc}
}

// Admit returns true exactly once for a given derived id; every later
// duplicate is rejected.
func (d *Deduplicator) Admit(rec Record) bool {
	return d.svc.admitOnce(rec.ID)
}
