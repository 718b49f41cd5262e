package core

import "math"

// ConvertPowerToWatts converts a dBm power level to watts.
func ConvertPowerToWatts(powerDBm float64) float64 {
	return math.Pow(10, powerDBm/10) / 1000.0
}

// ConvertPowerToDBm converts a power in watts to dBm.
func ConvertPowerToDBm(powerWatts float64) float64 {
	return 10 * math.Log10(powerWatts/0.001)
}
