package extractor

// RawClass is one class as returned by the extraction service. The service
// either fills Day/StartTime/EndTime or the compact Time field
// ("MON 10:00-11:30"); older models report the name as "name".
type RawClass struct {
	ClassName string `json:"className"`
	Name      string `json:"name,omitempty"`
	Day       string `json:"day,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Time      string `json:"time,omitempty"`
	Location  string `json:"location"`
	Professor string `json:"professor"`
}

// Title returns whichever name field is set
func (r RawClass) Title() string {
	if r.ClassName != "" {
		return r.ClassName
	}
	return r.Name
}

type extractRequest struct {
	PhotoDataURI string `json:"photoDataUri"`
}
