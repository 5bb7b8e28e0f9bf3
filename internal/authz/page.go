package authz

import "sort"

// Page identifies a protected functional area of the admin panel. The set is
// closed: a new area requires a new constant here.
type Page string

const (
	PageDashboard          Page = "dashboard"
	PageUserManagement     Page = "manajemen_pengguna"
	PageNews               Page = "berita"
	PageArticle            Page = "artikel"
	PageCityAgenda         Page = "agenda_kota"
	PageServices           Page = "layanan"
	PageUnitDirectory      Page = "perangkat_daerah"
	PageBudgetTransparency Page = "transparansi_anggaran"
	PageStaticPages        Page = "halaman_statis"
	PageTourism            Page = "pariwisata"
	PageVideo              Page = "video"
	PageAnnouncements      Page = "pengumuman"
	PageSocialMedia        Page = "media_sosial"
	PageSettings           Page = "pengaturan"
)

var pageLabels = map[Page]string{
	PageDashboard:          "Dasbor",
	PageUserManagement:     "Manajemen Pengguna",
	PageNews:               "Berita",
	PageArticle:            "Artikel",
	PageCityAgenda:         "Agenda Kota",
	PageServices:           "Layanan",
	PageUnitDirectory:      "Perangkat Daerah",
	PageBudgetTransparency: "Transparansi Anggaran",
	PageStaticPages:        "Halaman Statis",
	PageTourism:            "Pariwisata",
	PageVideo:              "Video",
	PageAnnouncements:      "Pengumuman",
	PageSocialMedia:        "Media Sosial",
	PageSettings:           "Pengaturan",
}

// AllPages returns every known page code in a stable order.
func AllPages() []Page {
	pages := make([]Page, 0, len(pageLabels))
	for p := range pageLabels {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

// ParsePage converts a stored string into a Page. Unknown values report false.
func ParsePage(s string) (Page, bool) {
	if _, ok := pageLabels[Page(s)]; ok {
		return Page(s), true
	}
	return "", false
}

// Valid reports whether the page code is known.
func (p Page) Valid() bool {
	_, ok := pageLabels[p]
	return ok
}

// Label returns the display name used by the UI and decision logging.
func (p Page) Label() string {
	return pageLabels[p]
}

// CategoryPages returns the pages belonging to a permission category.
// Unknown categories yield nothing.
func CategoryPages(c PermissionCategory) []Page {
	switch c {
	case CategorySuperadminOnly:
		return []Page{PageDashboard, PageUserManagement}
	case CategoryAdminUnitOptions:
		return contentPages(true)
	case CategoryAuthorOptions:
		return contentPages(false)
	}
	return nil
}

// contentPages lists every authoring page. Settings stays with admin_unit
// accounts and is never delegated down to authors.
func contentPages(includeSettings bool) []Page {
	pages := []Page{
		PageCityAgenda,
		PageArticle,
		PageNews,
		PageStaticPages,
		PageServices,
		PageSocialMedia,
		PageTourism,
		PageAnnouncements,
		PageUnitDirectory,
		PageBudgetTransparency,
		PageVideo,
	}
	if includeSettings {
		pages = append(pages, PageSettings)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}
