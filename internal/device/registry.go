package device

// Constructor builds a fresh driver instance for a slave whose wire
// identity matched the catalogue entry it is registered under.
type Constructor func(id Identity) Device

// catalogueEntry pairs a CatalogueEntry's accepted identities with the
// constructor that should back them; kept private since callers only
// need DefaultCatalogue's resolved map.
type catalogueEntry struct {
	entry       CatalogueEntry
	constructor Constructor
}

var defaultEntries = []catalogueEntry{
	{AnalogIn1ChCatalogue, func(Identity) Device { return NewAnalogIn(1, PDOPresetStandard) }},
	{AnalogIn1ChDiffCatalogue, func(Identity) Device { return NewAnalogIn(1, PDOPresetStandard) }},
	{AnalogIn4ChCatalogue, func(Identity) Device { return NewAnalogIn(4, PDOPresetStandard) }},
	{AnalogInPT100Catalogue, func(Identity) Device { return NewAnalogIn(2, PDOPresetStandard) }},
	{AnalogOut2ChCatalogue, func(Identity) Device { return NewAnalogOut(2) }},
	{DigitalInCatalogue, func(Identity) Device { return &DigitalIn{} }},
	{DigitalOut2Catalogue, func(Identity) Device { return NewDigitalOut(2) }},
	{DigitalOut8Catalogue, func(Identity) Device { return NewDigitalOut(8) }},
	{PulseTrainOut1ChCatalogue, func(Identity) Device { return &PulseTrainOut{} }},
	{PulseTrainOut2ChCatalogue, func(Identity) Device { return &PulseTrainOut{} }},
	{Stepper1ChCatalogue, func(Identity) Device { return &Stepper{} }},
	{Stepper1ChOCCatalogue, func(Identity) Device { return &Stepper{} }},
	{Stepper1ChCurrentCatalogue, func(Identity) Device { return &Stepper{} }},
	{StepperWago750672Catalogue, func(Identity) Device { return &Stepper{} }},
	{TempInCatalogue, func(Identity) Device { return &TempIn{} }},
	{BusCouplerCatalogue, func(id Identity) Device { return &BusCoupler{Identity: id} }},
}

// DefaultCatalogue resolves every terminal driver this package knows how
// to build into a flat Identity -> Constructor lookup, for the boot
// sequence's slave-to-driver binding step (spec.md §4.5 step 5).
func DefaultCatalogue() map[Identity]Constructor {
	out := make(map[Identity]Constructor)
	for _, ce := range defaultEntries {
		for _, id := range ce.entry.Identities {
			out[id] = ce.constructor
		}
	}
	return out
}
