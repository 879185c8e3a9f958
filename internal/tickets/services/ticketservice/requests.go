package ticketservice

type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
