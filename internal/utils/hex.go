package utils

const hexDigits = "0123456789ABCDEF"

// Frame formats b as space separated upper-case hex pairs ("06 34 12"),
// the way frames show up in logs.
func Frame(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out := make([]byte, 0, len(b)*3-1)
	for i, x := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, hexDigits[x>>4], hexDigits[x&0x0F])
	}
	return string(out)
}

// UUID16 formats a 16-bit GATT UUID as "0x180D".
func UUID16(v uint16) string {
	return string([]byte{
		'0', 'x',
		hexDigits[(v>>12)&0xF],
		hexDigits[(v>>8)&0xF],
		hexDigits[(v>>4)&0xF],
		hexDigits[v&0xF],
	})
}
