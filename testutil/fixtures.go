package testutil

// Values of the example.org directory used across the tests.
const (
	ExampleHost            = "dc1.example.org"
	ExampleURL             = "ldap://dc1.example.org:389"
	ExampleBaseDN          = "dc=example,dc=org"
	ExampleServiceDN       = "cn=svc,dc=example,dc=org"
	ExampleServicePassword = "secret"

	JDoeDN       = "cn=John Doe,ou=users,dc=example,dc=org"
	JDoeAccount  = "jdoe"
	JDoePassword = "hunter2"
)

// JDoeEntry is an Active Directory style user with every profile attribute.
func JDoeEntry() *FakeEntry {
	return &FakeEntry{
		DN:       JDoeDN,
		Password: JDoePassword,
		Attributes: map[string][]string{
			"objectClass":       {"top", "person", "organizationalPerson", "user"},
			"cn":                {"John Doe"},
			"sAMAccountName":    {JDoeAccount},
			"displayName":       {"John Doe"},
			"mail":              {"john.doe@example.org"},
			"department":        {"Infraestrutura"},
			"title":             {"Analista"},
			"distinguishedName": {JDoeDN},
		},
	}
}

// NewExampleDirectory returns the example.org directory with the service
// account and JDoeEntry.
func NewExampleDirectory(entries ...*FakeEntry) *FakeDirectory {
	d := NewFakeDirectory(append([]*FakeEntry{JDoeEntry()}, entries...)...)
	d.URL = ExampleURL
	d.ServiceDN = ExampleServiceDN
	d.ServicePassword = ExampleServicePassword
	return d
}
