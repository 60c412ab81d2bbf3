package datasource

// Raw records are the engine's input boundary. Source-specific fetchers
// (LDAP, files, directory APIs) normalize their payloads into this shape
// before a sync task is invoked.

type RawDepartment struct {
	Code   string  `json:"code" yaml:"code"`
	Name   string  `json:"name" yaml:"name"`
	Parent *string `json:"parent" yaml:"parent"`
}

type RawUser struct {
	Code        string            `json:"code" yaml:"code"`
	Properties  map[string]string `json:"properties" yaml:"properties"`
	Leaders     []string          `json:"leaders" yaml:"leaders"`
	Departments []string          `json:"departments" yaml:"departments"`
}

type RawRecords struct {
	Departments []RawDepartment `json:"departments" yaml:"departments"`
	Users       []RawUser       `json:"users" yaml:"users"`
}

// Well-known property names mapped onto User columns. Anything else lands
// in Extras.
const (
	PropUsername         = "username"
	PropFullName         = "full_name"
	PropEmail            = "email"
	PropPhone            = "phone"
	PropPhoneCountryCode = "phone_country_code"
)

// ToUser maps a raw record onto a User. Unknown properties are preserved as
// extension fields.
func (r RawUser) ToUser(dataSourceID int64) User {
	u := User{
		DataSourceID: dataSourceID,
		Code:         r.Code,
	}
	for name, value := range r.Properties {
		switch name {
		case PropUsername:
			u.Username = value
		case PropFullName:
			u.FullName = value
		case PropEmail:
			u.Email = value
		case PropPhone:
			u.Phone = value
		case PropPhoneCountryCode:
			u.PhoneCountryCode = value
		default:
			if u.Extras == nil {
				u.Extras = make(map[string]any)
			}
			u.Extras[name] = value
		}
	}
	return u
}

// FieldsEqual reports whether the overwritable fields of two users match.
// The username is compared only when includeUsername is set; a username
// governed by a naming rule is excluded from overwrite.
func (u User) FieldsEqual(other User, includeUsername bool) bool {
	if includeUsername && u.Username != other.Username {
		return false
	}
	if u.FullName != other.FullName ||
		u.Email != other.Email ||
		u.Phone != other.Phone ||
		u.PhoneCountryCode != other.PhoneCountryCode {
		return false
	}
	if len(u.Extras) != len(other.Extras) {
		return false
	}
	for k, v := range u.Extras {
		if ov, ok := other.Extras[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
