package repository

import "strings"

var personalColumns = []string{
	"name_chinese", "name_foreign", "gender", "marital_status", "birth_place", "birth_date", "origin",
	"id_type", "id_number", "id_expiry_date", "bank_account_number", "social_security_number",
	"home_phone", "mobile_phone", "address", "email", "alumni_class", "alumni_class_year",
	"alumni_class_duration", "teacher_certificate_number", "teaching_staff_rank",
	"teaching_staff_rank_effective_date", "emergency_contact_name", "emergency_contact_phone",
	"emergency_contact_relationship", "profile_picture",
}

var flagColumns = []string{"is_master", "is_phd", "is_overseas_study"}

func concatColumns(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}

func namedList(cols []string) string {
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return strings.Join(named, ", ")
}

func namedAssignments(cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = :" + c
	}
	return strings.Join(sets, ", ")
}

func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}

func normalizeOrder(order string) string {
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		return "DESC"
	}
	return order
}
