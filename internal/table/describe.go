package table

// ColumnInfo summarises one column: how many rows carry a value and what
// those values look like.
type ColumnInfo struct {
	Name    string
	NonNull int
	Kind    Kind
}

// Describe returns per-column info in header order. Kind is the narrowest
// kind every non-null value can be read as: number, then date, then text.
// A column with no values reports KindNull.
func Describe(d Dataset) []ColumnInfo {
	infos := make([]ColumnInfo, len(d.Columns))
	for i, col := range d.Columns {
		info := ColumnInfo{Name: col, Kind: KindNull}
		numeric, dated := true, true
		for _, row := range d.Rows {
			v := row[col]
			if v.IsNull() {
				continue
			}
			info.NonNull++
			if _, ok := v.Float(); !ok {
				numeric = false
			}
			if v.Kind() == KindNumber {
				dated = false
			} else if _, ok := v.Time(); !ok {
				dated = false
			}
		}
		if info.NonNull > 0 {
			switch {
			case numeric:
				info.Kind = KindNumber
			case dated:
				info.Kind = KindDate
			default:
				info.Kind = KindText
			}
		}
		infos[i] = info
	}
	return infos
}

// Head returns up to n leading rows rendered in header order.
func Head(d Dataset, n int) [][]string {
	if n > d.Len() {
		n = d.Len()
	}
	if n <= 0 {
		return nil
	}
	out := make([][]string, n)
	for i := range n {
		out[i] = d.Record(i)
	}
	return out
}
