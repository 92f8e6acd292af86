package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

// TestParseNmcliAccessPoints tests terse nmcli output with escaped BSSIDs.
func TestParseNmcliAccessPoints(t *testing.T) {
	output := "00\\:14\\:22\\:01\\:23\\:45:72\n" +
		"AA\\:BB\\:CC\\:DD\\:EE\\:FF:40\n" +
		"not-a-mac:10\n" +
		"00\\:14\\:22\\:01\\:23\\:46:weak\n"

	aps, err := parseNmcliAccessPoints(output)

	require.NoError(t, err)
	assert.Equal(t, []maps.WiFiAccessPoint{
		{MACAddress: "00:14:22:01:23:45", SignalStrength: 72},
		{MACAddress: "AA:BB:CC:DD:EE:FF", SignalStrength: 40},
	}, aps)
}

// TestParseMmcliCellTower tests extraction of the serving cell.
func TestParseMmcliCellTower(t *testing.T) {
	output := "modem.3gpp.mcc : 716\n" +
		"modem.3gpp.mnc : 10\n" +
		"modem.3gpp.lac : 1A2B\n" +
		"modem.3gpp.cid : 00C0FFEE\n" +
		"modem.generic.state : connected\n"

	towers, err := parseMmcliCellTower(output)

	require.NoError(t, err)
	require.Len(t, towers, 1)
	assert.Equal(t, 716, towers[0].MobileCountryCode)
	assert.Equal(t, 10, towers[0].MobileNetworkCode)
	assert.Equal(t, 0x1A2B, towers[0].LocationAreaCode)
	assert.Equal(t, 0xC0FFEE, towers[0].CellID)
}

// TestParseMmcliCellTower_Incomplete tests that missing MCC/MNC is rejected.
func TestParseMmcliCellTower_Incomplete(t *testing.T) {
	_, err := parseMmcliCellTower("modem.3gpp.lac : 1A2B\n")
	assert.EqualError(t, err, "incomplete cell tower data")
}

// TestIsValidMAC tests MAC address validation.
func TestIsValidMAC(t *testing.T) {
	assert.True(t, isValidMAC("00:14:22:01:23:45"))
	assert.True(t, isValidMAC("ff:ff:ff:ff:ff:ff"))
	assert.False(t, isValidMAC("00:14:22:01:23"))
	assert.False(t, isValidMAC("00:14:22:01:23:4G"))
	assert.False(t, isValidMAC("0:14:22:01:23:45"))
}
