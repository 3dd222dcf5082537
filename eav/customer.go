package eav

import "github.com/kbukum/fixturekit/framework"

// CustomerSubtype loads customers. Customer entities always carry attribute
// set 0, whatever the entity type's default set says.
func CustomerSubtype() Subtype {
	return Subtype{
		EntityType:       framework.EntityCustomer,
		AttributeSetZero: true,
		IndexCodes:       []string{framework.IndexCustomerGrid},
	}
}

// CustomerAddressSubtype loads customer addresses, also on attribute set 0.
func CustomerAddressSubtype() Subtype {
	return Subtype{
		EntityType:       framework.EntityCustomerAddress,
		AttributeSetZero: true,
	}
}

// DefaultSubtypes returns the built-in subtypes.
func DefaultSubtypes() []Subtype {
	return []Subtype{ProductSubtype(), CategorySubtype(), CustomerSubtype(), CustomerAddressSubtype()}
}
