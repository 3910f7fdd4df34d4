package events

// Topic constants for domain events emitted by the platform.
const (
	TopicUniversityCreated = "university.created"
	TopicUniversityUpdated = "university.updated"
	TopicUniversityDeleted = "university.deleted"
	TopicImagePrimarySet   = "university.image_primary_set"
	TopicTuitionUpdated    = "tuition.updated"
	TopicFeesUpdated       = "fees.updated"
	TopicScholarshipSaved  = "scholarship.saved"
	TopicAidSaved          = "financial_aid.saved"
)
