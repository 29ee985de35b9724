// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access or service token required
	SecurityAdmin                       // Admin or system role required
)

// EndpointSecurityConfig maps named HTTP routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"Healthz":       SecurityPublic,
	"UploadPhoto":   SecurityPublic, // authorized by the presigned key
	"DownloadPhoto": SecurityPublic,

	// Maintenance requests
	"SubmitRequest":      SecurityAccess,
	"GetRequest":         SecurityAccess,
	"ListRequests":       SecurityAdmin,
	"UpdateRequest":      SecurityAdmin,
	"RequestPhotoUpload": SecurityAccess,
	"SetCosts":           SecurityAdmin,
	"SoftDeleteRequest":  SecurityAdmin,
	"RecoverRequest":     SecurityAdmin,
	"HardDeleteRequest":  SecurityAdmin,
	"DecideApproval":     SecurityAccess,
	"AppendMessage":      SecurityAccess,
	"ListMessages":       SecurityAccess,

	// Payment requests
	"ListPaymentRequests":   SecurityAdmin,
	"GetPaymentRequest":     SecurityAccess,
	"ListPaymentActions":    SecurityAccess,
	"MarkPaymentPaid":       SecurityAdmin,
	"CancelPaymentRequest":  SecurityAdmin,
	"DisputePaymentRequest": SecurityAccess,

	// Rental applications
	"SubmitApplication":   SecurityAccess,
	"GetApplication":      SecurityAccess,
	"ApproveApplication":  SecurityAdmin,
	"RejectApplication":   SecurityAdmin,
	"AttachFundingSource": SecurityAccess,
	"EnableAutoPay":       SecurityAccess,
	"ChargeDeposit":       SecurityAdmin,
	"RecordDeposit":       SecurityAdmin,
	"RecordRentPayment":   SecurityAdmin,
	"GetRentStanding":     SecurityAccess,

	// Owners
	"CreateOwner": SecurityAdmin,
	"GetOwner":    SecurityAccess,
	"AddProperty": SecurityAdmin,
	"DeleteOwner": SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
