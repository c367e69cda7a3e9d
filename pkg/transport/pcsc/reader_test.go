package pcsc

import "testing"

func TestSelectReader(t *testing.T) {
	readers := []string{"ACS ACR122U 00 00", "Keystone CCID 01 00"}

	tests := []struct {
		name    string
		readers []string
		reader  string
		want    string
		wantErr bool
	}{
		{"First By Default", readers, "", readers[0], false},
		{"Exact Name", readers, "Keystone CCID 01 00", readers[1], false},
		{"Missing Name", readers, "Other", "", true},
		{"No Readers", nil, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectReader(tt.readers, tt.reader)
			if (err != nil) != tt.wantErr {
				t.Fatalf("selectReader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("selectReader() = %q, want %q", got, tt.want)
			}
		})
	}
}
