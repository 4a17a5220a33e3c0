package models

// The closed vocabulary of task-type labels used by label prediction and
// evaluation. A label outside this set is a data-integrity error, never a
// silent drop.
const (
	LabelPlanContact         = "plan_contact"
	LabelScheduleMeeting     = "schedule_meeting"
	LabelUpdateContactInfo   = "update_contact_info_non_postal"
	LabelUpdatePostalAddress = "update_contact_info_postal_address"
	LabelUpdateKYCActivity   = "update_kyc_activity"
	LabelUpdateKYCOrigin     = "update_kyc_origin_of_assets"
	LabelUpdateKYCPurpose    = "update_kyc_purpose_of_businessrelation"
	LabelUpdateKYCAssets     = "update_kyc_total_assets"
)

// TaskLabels lists the eight recognized task-type labels in their canonical
// order.
var TaskLabels = []string{
	LabelPlanContact,
	LabelScheduleMeeting,
	LabelUpdateContactInfo,
	LabelUpdatePostalAddress,
	LabelUpdateKYCActivity,
	LabelUpdateKYCOrigin,
	LabelUpdateKYCPurpose,
	LabelUpdateKYCAssets,
}

var taskLabelSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(TaskLabels))
	for _, l := range TaskLabels {
		set[l] = struct{}{}
	}
	return set
}()

// ValidLabel reports whether l belongs to the fixed task-type vocabulary.
func ValidLabel(l string) bool {
	_, ok := taskLabelSet[l]
	return ok
}
