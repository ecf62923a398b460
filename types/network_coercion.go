package types

// networkCoercion reads and writes the Inet/Cidr/MacAddress value
// objects from their canonical text form, per spec.md §4.5's "Advanced
// type converters" Network bullet.
type networkCoercion struct{}

func (networkCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	switch target {
	case Inet:
		v, err := ParseInet(s)
		if err != nil {
			return nil, false
		}
		return v, true
	case Cidr:
		v, err := ParseCidr(s)
		if err != nil {
			return nil, false
		}
		return v, true
	case MacAddress:
		v, err := ParseMacAddress(s)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func (networkCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	switch target {
	case Inet:
		if v, ok := value.(Inet); ok {
			return v.String(), true
		}
	case Cidr:
		if v, ok := value.(Cidr); ok {
			return v.String(), true
		}
	case MacAddress:
		if v, ok := value.(MacAddress); ok {
			return v.String(), true
		}
	}
	return nil, false
}
