package fieldreg

import "fieldcore/internal/fieldcore"

// Bootstrap installs the special pseudo-field expressions (dontSaveSPI,
// _maxPacketsToSave, ...), mapping each alias onto its pseudo-position.
// Must run once, during the single-threaded startup phase, before any
// session processing. Initial internal fields that read
// session-computed state (ip.src, communityId, ...) are registered
// separately by session.RegisterInternalFields, since only the session
// package can supply their getter/setter closures without an import cycle.
func Bootstrap(r *Registry) {
	r.ByExpAddSpecial("dontSaveSPI", fieldcore.PosStopSPI)
	r.ByExpAddSpecial("_dontSaveSPI", fieldcore.PosStopSPI)
	r.ByExpAddSpecial("_maxPacketsToSave", fieldcore.PosStopPCAP)
	r.ByExpAddSpecial("_minPacketsBeforeSavingSPI", fieldcore.PosMinSave)
	r.ByExpAddSpecial("_dropBySrc", fieldcore.PosDropSrc)
	r.ByExpAddSpecial("_dropByDst", fieldcore.PosDropDst)
	r.ByExpAddSpecial("_dropBySession", fieldcore.PosDropSession)
	r.ByExpAddSpecial("_dontCheckYara", fieldcore.PosStopYara)
}
