package source

import "testing"

func TestReadingFrom(t *testing.T) {
	tests := []struct {
		name         string
		celsius, rh  float64
		wantT        int16
		wantH        uint16
		wantTempFrm  uint32
		wantHumFrame uint32
	}{
		{name: "scale minimum", celsius: -50, rh: 0, wantT: -50, wantH: 0, wantTempFrm: 0, wantHumFrame: 0},
		{name: "midscale", celsius: 50, rh: 50, wantT: 50, wantH: 50, wantTempFrm: 0x80000, wantHumFrame: 0x80000},
		{name: "negative truncates toward zero", celsius: -10.7, rh: 33.9, wantT: -10, wantH: 33, wantTempFrm: toFrame(39.3 / 200), wantHumFrame: toFrame(0.339)},
		{name: "below range", celsius: -80, rh: -5, wantT: -50, wantH: 0, wantTempFrm: 0, wantHumFrame: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readingFrom(tt.celsius, tt.rh)
			if got.Temperature != tt.wantT || got.Humidity != tt.wantH {
				t.Errorf("readingFrom() = T%d H%d, want T%d H%d", got.Temperature, got.Humidity, tt.wantT, tt.wantH)
			}
			if got.TemperatureFrame != tt.wantTempFrm || got.HumidityFrame != tt.wantHumFrame {
				t.Errorf("frames = %#x/%#x, want %#x/%#x", got.TemperatureFrame, got.HumidityFrame, tt.wantTempFrm, tt.wantHumFrame)
			}
		})
	}
}
