package crm

// Contact is the CRM representation of a buyer. Field tags follow the Zoho
// CRM v2 record format.
type Contact struct {
	FirstName      string `json:"First_Name"`
	LastName       string `json:"Last_Name"`
	Email          string `json:"Email"`
	Phone          string `json:"Phone"`
	MailingStreet  string `json:"Mailing_Street"`
	MailingCity    string `json:"Mailing_City"`
	MailingState   string `json:"Mailing_State"`
	MailingZip     string `json:"Mailing_Zip"`
	MailingCountry string `json:"Mailing_Country"`
}

// ContactReference links a deal to an existing contact record by CRM id
type ContactReference struct {
	ID string `json:"id"`
}

// Deal is a sales opportunity. ContactName stays nil until the owning
// contact has been upserted and its CRM id is known.
type Deal struct {
	DealName    string            `json:"Deal_Name"`
	Amount      float64           `json:"Amount"`
	Stage       string            `json:"Stage"`
	ClosingDate string            `json:"Closing_Date"`
	Description string            `json:"Description"`
	ContactName *ContactReference `json:"Contact_Name,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type createResponse struct {
	Data []struct {
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// recordEnvelope wraps payloads the way the CRM expects: {"data":[...]}
type recordEnvelope struct {
	Data []interface{} `json:"data"`
}
