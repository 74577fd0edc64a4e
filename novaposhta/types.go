package novaposhta

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Models and methods consumed by this service.
const (
	ModelAddress              = "Address"
	ModelCounterparty         = "Counterparty"
	ModelCounterpartyGeneral  = "CounterpartyGeneral"
	ModelContactPersonGeneral = "ContactPersonGeneral"
	ModelInternetDocument     = "InternetDocument"

	MethodSearchSettlements             = "searchSettlements"
	MethodGetWarehouses                 = "getWarehouses"
	MethodGetCities                     = "getCities"
	MethodSave                          = "save"
	MethodGetCounterpartyAddresses      = "getCounterpartyAddresses"
	MethodGetCounterparties             = "getCounterparties"
	MethodGetCounterpartyContactPersons = "getCounterpartyContactPersons"
)

// Counterparty properties accepted by getCounterparties and Counterparty.save.
const (
	PropertySender      = "Sender"
	PropertyRecipient   = "Recipient"
	PropertyThirdPerson = "ThirdPerson"
)

func ValidCounterpartyProperty(p string) bool {
	switch p {
	case PropertySender, PropertyRecipient, PropertyThirdPerson:
		return true
	}
	return false
}

// Address.searchSettlements

type SearchSettlementsProps struct {
	CityName string `json:"CityName"`
	Limit    string `json:"Limit,omitempty"`
	Page     string `json:"Page,omitempty"`
}

// SettlementGroup is one element of the searchSettlements data array.
type SettlementGroup struct {
	Addresses []SettlementAddress `json:"Addresses"`
}

type SettlementAddress struct {
	Present            string `json:"Present"`
	MainDescription    string `json:"MainDescription"`
	Area               string `json:"Area"`
	Region             string `json:"Region"`
	SettlementTypeCode string `json:"SettlementTypeCode"`
	Ref                string `json:"Ref"`
	DeliveryCity       string `json:"DeliveryCity"`
}

// Address.getWarehouses

type GetWarehousesProps struct {
	CityRef      string `json:"CityRef"`
	FindByString string `json:"FindByString,omitempty"`
	Limit        string `json:"Limit,omitempty"`
	Page         string `json:"Page,omitempty"`
	Language     string `json:"Language,omitempty"`
}

type Warehouse struct {
	Ref             string `json:"Ref"`
	Description     string `json:"Description"`
	DescriptionRu   string `json:"DescriptionRu"`
	ShortAddress    string `json:"ShortAddress"`
	Number          string `json:"Number"`
	CityRef         string `json:"CityRef"`
	CityDescription string `json:"CityDescription"`
	TypeOfWarehouse string `json:"TypeOfWarehouse"`
}

// Address.getCities (legacy city directory)

type GetCitiesProps struct {
	FindByString string `json:"FindByString,omitempty"`
	Limit        string `json:"Limit,omitempty"`
}

type City struct {
	Ref                       string `json:"Ref"`
	Description               string `json:"Description"`
	DescriptionRu             string `json:"DescriptionRu"`
	Area                      string `json:"Area"`
	SettlementTypeDescription string `json:"SettlementTypeDescription"`
}

// Counterparty.save

type SaveCounterpartyProps struct {
	FirstName            string `json:"FirstName"`
	MiddleName           string `json:"MiddleName"`
	LastName             string `json:"LastName"`
	Phone                string `json:"Phone"`
	Email                string `json:"Email"`
	CounterpartyType     string `json:"CounterpartyType"`
	CounterpartyProperty string `json:"CounterpartyProperty"`
}

type SavedCounterparty struct {
	Ref              string                `json:"Ref"`
	Description      string                `json:"Description"`
	FirstName        string                `json:"FirstName"`
	MiddleName       string                `json:"MiddleName"`
	LastName         string                `json:"LastName"`
	CounterpartyType string                `json:"CounterpartyType"`
	ContactPerson    *NestedContactPersons `json:"ContactPerson,omitempty"`
}

// NestedContactPersons is the envelope-shaped ContactPerson field of Counterparty.save.
type NestedContactPersons struct {
	Success bool            `json:"success"`
	Data    []ContactPerson `json:"data"`
}

// ContactRef returns the nested contact person's Ref, or the counterparty Ref
// when the response carries none.
func (s SavedCounterparty) ContactRef() string {
	if s.ContactPerson != nil {
		for _, cp := range s.ContactPerson.Data {
			if cp.Ref != "" {
				return cp.Ref
			}
		}
	}
	return s.Ref
}

// CounterpartyGeneral.getCounterparties

type GetCounterpartiesProps struct {
	CounterpartyProperty string `json:"CounterpartyProperty"`
	Page                 string `json:"Page,omitempty"`
	FindByString         string `json:"FindByString,omitempty"`
}

type Counterparty struct {
	Ref                      string `json:"Ref"`
	Description              string `json:"Description"`
	FirstName                string `json:"FirstName"`
	LastName                 string `json:"LastName"`
	MiddleName               string `json:"MiddleName"`
	Phone                    string `json:"Phone"`
	City                     string `json:"City"`
	CounterpartyType         string `json:"CounterpartyType"`
	OwnershipFormDescription string `json:"OwnershipFormDescription"`
	EDRPOU                   string `json:"EDRPOU"`
}

// Listings keyed by counterparty Ref.

type RefPageProps struct {
	Ref                  string `json:"Ref"`
	Page                 string `json:"Page,omitempty"`
	CounterpartyProperty string `json:"CounterpartyProperty,omitempty"`
}

type CounterpartyAddress struct {
	Ref             string `json:"Ref"`
	Description     string `json:"Description"`
	CityRef         string `json:"CityRef"`
	CityDescription string `json:"CityDescription"`
	StreetRef       string `json:"StreetRef"`
	BuildingNumber  string `json:"BuildingNumber"`
	Note            string `json:"Note"`
}

type ContactPerson struct {
	Ref         string `json:"Ref"`
	Description string `json:"Description"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	MiddleName  string `json:"MiddleName"`
	Phones      string `json:"Phones"`
	Email       string `json:"Email"`
}

// ContactPersonGeneral.save

type SaveContactPersonProps struct {
	CounterpartyRef string `json:"CounterpartyRef"`
	FirstName       string `json:"FirstName"`
	LastName        string `json:"LastName"`
	MiddleName      string `json:"MiddleName"`
	Phone           string `json:"Phone"`
}

// Address.save

type SaveAddressProps struct {
	CounterpartyRef string `json:"CounterpartyRef"`
	StreetRef       string `json:"StreetRef"`
	BuildingNumber  string `json:"BuildingNumber"`
	Flat            string `json:"Flat,omitempty"`
	Note            string `json:"Note,omitempty"`
}

type SavedAddress struct {
	Ref         string `json:"Ref"`
	Description string `json:"Description"`
}

// InternetDocument.save

type DocumentProps struct {
	PayerType     string `json:"PayerType"`
	PaymentMethod string `json:"PaymentMethod"`
	DateTime      string `json:"DateTime"`
	CargoType     string `json:"CargoType"`
	VolumeGeneral string `json:"VolumeGeneral"`
	Weight        string `json:"Weight"`
	ServiceType   string `json:"ServiceType"`
	SeatsAmount   string `json:"SeatsAmount"`
	Description   string `json:"Description"`
	Cost          string `json:"Cost"`

	CitySender    string `json:"CitySender"`
	Sender        string `json:"Sender"`
	SenderAddress string `json:"SenderAddress"`
	ContactSender string `json:"ContactSender"`
	SendersPhone  string `json:"SendersPhone"`

	CityRecipient    string `json:"CityRecipient"`
	Recipient        string `json:"Recipient"`
	RecipientAddress string `json:"RecipientAddress"`
	ContactRecipient string `json:"ContactRecipient"`
	RecipientsPhone  string `json:"RecipientsPhone"`

	OptionsSeat []Seat `json:"OptionsSeat"`
}

type Seat struct {
	VolumetricVolume string `json:"volumetricVolume"`
	VolumetricWidth  string `json:"volumetricWidth"`
	VolumetricLength string `json:"volumetricLength"`
	VolumetricHeight string `json:"volumetricHeight"`
	Weight           string `json:"weight"`
}

type SavedDocument struct {
	Ref                   string      `json:"Ref"`
	IntDocNumber          string      `json:"IntDocNumber"`
	CostOnSite            Amount `json:"CostOnSite"`
	EstimatedDeliveryDate string `json:"EstimatedDeliveryDate"`
	TypeDocument          string `json:"TypeDocument"`
}

// Amount is an informational money field the API sends as a number, a
// string or null. It never fails to decode, so an odd value cannot turn a
// created document into an error.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		*a = Amount(strings.Trim(string(b), `"`))
		return nil
	}
	*a = Amount(stringify(v))
	return nil
}
