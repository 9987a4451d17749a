package apex

// Canonical parameter names every device code resolves to.
const (
	ParamTemperature = "temperature"
	ParamPH          = "ph"
	ParamAlkalinity  = "alkalinity"
	ParamCalcium     = "calcium"
	ParamMagnesium   = "magnesium"
	ParamPhosphate   = "phosphate"
	ParamNitrate     = "nitrate"
)

// parameterCodes maps every known vendor code to its canonical name.
// Firmware revisions disagree on identifiers: probe readings appear
// under a short mnemonic in the instant log and under a bus address
// (module_port) in the trend log, so both forms are listed.
var parameterCodes = map[string]string{
	"Temp": ParamTemperature,
	"Tmp":  ParamTemperature,
	"pH":   ParamPH,
	"2_0":  ParamAlkalinity,
	"Alk":  ParamAlkalinity,
	"2_1":  ParamCalcium,
	"Ca":   ParamCalcium,
	"2_2":  ParamMagnesium,
	"Mg":   ParamMagnesium,
	"3_0":  ParamPhosphate,
	"PO4":  ParamPhosphate,
	"3_1":  ParamNitrate,
	"NO3":  ParamNitrate,
}

// statusParameters are the canonical names accepted from the live
// status snapshot. Only temperature and pH are continuously measured
// by probes; other status inputs are stale manual values and must not
// be treated as live readings.
var statusParameters = map[string]struct{}{
	ParamTemperature: {},
	ParamPH:          {},
}

// CanonicalParameter resolves a vendor device code to its canonical
// parameter name. Unknown codes report ok=false and the reading is
// dropped by the caller; this is not an error.
func CanonicalParameter(code string) (string, bool) {
	name, ok := parameterCodes[code]
	return name, ok
}

// statusParameter resolves a status-input code, additionally requiring
// the canonical name to be probe-backed.
func statusParameter(code string) (string, bool) {
	name, ok := parameterCodes[code]
	if !ok {
		return "", false
	}
	if _, ok := statusParameters[name]; !ok {
		return "", false
	}
	return name, true
}
