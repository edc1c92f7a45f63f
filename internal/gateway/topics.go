package gateway

// Convención de topics del protocolo petición/respuesta:
// la petición va a un topic fijo por operación y la respuesta vuelve por un
// topic derivado del correlation id, que solo escucha el solicitante.

const domainPrefix = "care"

func RequestTopic(op string) string {
	return domainPrefix + "/request/" + op
}

func ReplyTopic(op, correlationID string) string {
	return domainPrefix + "/response/" + op + "/" + correlationID
}
