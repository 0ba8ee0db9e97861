package clinical

// DoctorStats summarises a doctor's medical records.
type DoctorStats struct {
	Records        int     `json:"records"`
	UniquePatients int     `json:"unique_patients"`
	Revenue        float64 `json:"revenue"`
	AverageCost    float64 `json:"average_cost"`
}

// ComputeDoctorStats sums total cost over records. AverageCost is 0 when there
// are no records.
func ComputeDoctorStats(records []*MedicalRecord) DoctorStats {
	s := DoctorStats{Records: len(records)}
	patients := make(map[string]struct{})
	for _, r := range records {
		s.Revenue += r.TotalCost
		patients[r.PatientID] = struct{}{}
	}
	s.UniquePatients = len(patients)
	if s.Records > 0 {
		s.AverageCost = s.Revenue / float64(s.Records)
	}
	return s
}
