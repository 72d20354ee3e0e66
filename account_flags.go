package ldap

import (
	"fmt"
	"strconv"
	"strings"
)

// AccountControl is the Active Directory userAccountControl bit field.
// https://learn.microsoft.com/en-us/windows/win32/adschema/a-useraccountcontrol
type AccountControl uint32

const (
	UACScript                     AccountControl = 0x1
	UACAccountDisabled            AccountControl = 0x2
	UACHomeDirRequired            AccountControl = 0x8
	UACLockout                    AccountControl = 0x10
	UACPasswordNotRequired        AccountControl = 0x20
	UACPasswordCantChange         AccountControl = 0x40
	UACEncryptedPasswordAllowed   AccountControl = 0x80
	UACTempDuplicateAccount       AccountControl = 0x100
	UACNormalAccount              AccountControl = 0x200
	UACInterdomainTrustAccount    AccountControl = 0x800
	UACWorkstationTrustAccount    AccountControl = 0x1000
	UACServerTrustAccount         AccountControl = 0x2000
	UACDontExpirePassword         AccountControl = 0x10000
	UACMNSLogonAccount            AccountControl = 0x20000
	UACSmartcardRequired          AccountControl = 0x40000
	UACTrustedForDelegation       AccountControl = 0x80000
	UACNotDelegated               AccountControl = 0x100000
	UACUseDESKeyOnly              AccountControl = 0x200000
	UACDontRequirePreauth         AccountControl = 0x400000
	UACPasswordExpired            AccountControl = 0x800000
	UACTrustedToAuthForDelegation AccountControl = 0x1000000
)

var accountControlNames = []struct {
	flag AccountControl
	name string
}{
	{UACScript, "SCRIPT"},
	{UACAccountDisabled, "ACCOUNTDISABLE"},
	{UACHomeDirRequired, "HOMEDIR_REQUIRED"},
	{UACLockout, "LOCKOUT"},
	{UACPasswordNotRequired, "PASSWD_NOTREQD"},
	{UACPasswordCantChange, "PASSWD_CANT_CHANGE"},
	{UACEncryptedPasswordAllowed, "ENCRYPTED_TEXT_PWD_ALLOWED"},
	{UACTempDuplicateAccount, "TEMP_DUPLICATE_ACCOUNT"},
	{UACNormalAccount, "NORMAL_ACCOUNT"},
	{UACInterdomainTrustAccount, "INTERDOMAIN_TRUST_ACCOUNT"},
	{UACWorkstationTrustAccount, "WORKSTATION_TRUST_ACCOUNT"},
	{UACServerTrustAccount, "SERVER_TRUST_ACCOUNT"},
	{UACDontExpirePassword, "DONT_EXPIRE_PASSWORD"},
	{UACMNSLogonAccount, "MNS_LOGON_ACCOUNT"},
	{UACSmartcardRequired, "SMARTCARD_REQUIRED"},
	{UACTrustedForDelegation, "TRUSTED_FOR_DELEGATION"},
	{UACNotDelegated, "NOT_DELEGATED"},
	{UACUseDESKeyOnly, "USE_DES_KEY_ONLY"},
	{UACDontRequirePreauth, "DONT_REQ_PREAUTH"},
	{UACPasswordExpired, "PASSWORD_EXPIRED"},
	{UACTrustedToAuthForDelegation, "TRUSTED_TO_AUTH_FOR_DELEGATION"},
}

func (c AccountControl) Has(flag AccountControl) bool {
	return c&flag == flag
}

// Disabled reports whether the account cannot log on.
func (c AccountControl) Disabled() bool {
	return c.Has(UACAccountDisabled)
}

// String lists the set flags separated by "|". Unknown bits are shown in hex.
func (c AccountControl) String() string {
	var names []string
	rest := c
	for _, n := range accountControlNames {
		if c.Has(n.flag) {
			names = append(names, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// SamAccountType is the Active Directory sAMAccountType value.
// https://learn.microsoft.com/en-us/windows/win32/adschema/a-samaccounttype
type SamAccountType uint32

const (
	SamDomainObject           SamAccountType = 0x0
	SamGroupObject            SamAccountType = 0x10000000
	SamNonSecurityGroupObject SamAccountType = 0x10000001
	SamAliasObject            SamAccountType = 0x20000000
	SamNonSecurityAliasObject SamAccountType = 0x20000001
	SamUserObject             SamAccountType = 0x30000000
	SamMachineAccount         SamAccountType = 0x30000001
	SamTrustAccount           SamAccountType = 0x30000002
	SamAppBasicGroup          SamAccountType = 0x40000000
	SamAppQueryGroup          SamAccountType = 0x40000001
)

func (t SamAccountType) String() string {
	switch t {
	case SamDomainObject:
		return "DOMAIN_OBJECT"
	case SamGroupObject:
		return "GROUP_OBJECT"
	case SamNonSecurityGroupObject:
		return "NON_SECURITY_GROUP_OBJECT"
	case SamAliasObject:
		return "ALIAS_OBJECT"
	case SamNonSecurityAliasObject:
		return "NON_SECURITY_ALIAS_OBJECT"
	case SamUserObject:
		return "USER_OBJECT"
	case SamMachineAccount:
		return "MACHINE_ACCOUNT"
	case SamTrustAccount:
		return "TRUST_ACCOUNT"
	case SamAppBasicGroup:
		return "APP_BASIC_GROUP"
	case SamAppQueryGroup:
		return "APP_QUERY_GROUP"
	default:
		return "UNKNOWN"
	}
}

// annotateFlags appends the decoded names to a numeric userAccountControl or
// sAMAccountType value, e.g. "514 (ACCOUNTDISABLE|NORMAL_ACCOUNT)". Values
// that do not parse are returned unchanged.
func annotateFlags(attr, value string) string {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return value
	}
	switch {
	case strings.EqualFold(attr, "userAccountControl"):
		return fmt.Sprintf("%s (%s)", value, AccountControl(n))
	case strings.EqualFold(attr, "sAMAccountType"):
		return fmt.Sprintf("%s (%s)", value, SamAccountType(n))
	}
	return value
}
