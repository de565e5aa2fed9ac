package env

var (
	_ Environment = (*V0)(nil)
	_ Environment = (*V1)(nil)
	_ Environment = (*V2)(nil)
	_ Environment = (*Plus)(nil)
	_ Environment = (*Q)(nil)
)
