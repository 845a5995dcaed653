package connect

// Non-OAuth catalogue ids
const (
	BluetoothHeartRateID = "web_bluetooth_hr"
	BluetoothScaleID     = "web_bluetooth_scale"
	ManualEntryID        = "manual_entry"
)

var catalogue = []Device{
	{
		ID:             "google_fit",
		Name:           "Google Fit",
		Description:    "Activity, heart rate and sleep data from Google Fit",
		ConnectionType: ConnectionOAuth,
		Metrics:        []string{"Steps", "Heart Rate", "Calories", "Distance", "Sleep", "Weight"},
	},
	{
		ID:             "fitbit",
		Name:           "Fitbit",
		Description:    "Sync data from a Fitbit device",
		ConnectionType: ConnectionOAuth,
		Metrics:        []string{"Steps", "Heart Rate", "Sleep", "SpO2", "Active Minutes", "Calories"},
	},
	{
		ID:             "oura",
		Name:           "Oura Ring",
		Description:    "Sleep and readiness tracking from Oura",
		ConnectionType: ConnectionOAuth,
		Metrics:        []string{"Sleep Score", "Readiness", "HRV", "Body Temperature", "Activity"},
	},
	{
		ID:             "withings",
		Name:           "Withings",
		Description:    "Withings smart scales and blood pressure monitors",
		ConnectionType: ConnectionOAuth,
		Metrics:        []string{"Weight", "BMI", "Body Fat", "Blood Pressure", "Heart Rate"},
	},
	{
		ID:             "strava",
		Name:           "Strava",
		Description:    "Running and cycling activities from Strava",
		ConnectionType: ConnectionOAuth,
		Metrics:        []string{"Activities", "Distance", "Pace", "Heart Rate", "Power", "Elevation"},
	},
	{
		ID:             BluetoothHeartRateID,
		Name:           "Bluetooth Heart Rate Monitor",
		Description:    "Any Bluetooth LE heart rate monitor",
		ConnectionType: ConnectionBluetooth,
		Metrics:        []string{"Heart Rate", "RR Interval"},
	},
	{
		ID:             BluetoothScaleID,
		Name:           "Bluetooth Smart Scale",
		Description:    "Bluetooth LE weight scales",
		ConnectionType: ConnectionBluetooth,
		Metrics:        []string{"Weight", "BMI", "Body Fat %"},
	},
	{
		ID:             ManualEntryID,
		Name:           "Manual Entry",
		Description:    "Manually logged health metrics",
		ConnectionType: ConnectionManual,
		Metrics:        []string{"Any Metric"},
	},
}

// Catalogue returns every known data source
func Catalogue() []Device {
	out := make([]Device, len(catalogue))
	copy(out, catalogue)
	return out
}

// LookupDevice returns the catalogue entry for id
func LookupDevice(id string) (Device, bool) {
	for _, d := range catalogue {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}
