package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vozruta/internal/core"
)

func ptr(s string) *string { return &s }

func sampleTrips() []core.Trip {
	return []core.Trip{
		{Date: "2024-03-01", Section: core.SectionOutbound, Passenger: ptr("Juan"), Destination: ptr("Retiro"),
			Description: "Juan a Retiro", Amount: 15000, Time: ptr("08:30")},
		{Date: "2024-03-01", Section: core.SectionOutbound, Description: "Viaje corto", Amount: 1250.5},
		{Date: "2024-03-01", Section: core.SectionReturn, Passenger: ptr("Ana"),
			Description: "Ana, con valija", Amount: 8000},
	}
}

func TestMoney(t *testing.T) {
	cases := []struct {
		amount float64
		places int32
		want   string
	}{
		{0, 2, "$ 0,00"},
		{35000, 2, "$ 35.000,00"},
		{1250.5, 2, "$ 1.250,50"},
		{1234567.891, 2, "$ 1.234.567,89"},
		{35000, 0, "$ 35.000"},
		{999.5, 0, "$ 1.000"},
		{12, 0, "$ 12"},
		{-1500, 0, "-$ 1.500"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Money(tc.amount, tc.places), "%v/%d", tc.amount, tc.places)
	}
}

func TestLongDate(t *testing.T) {
	got, err := LongDate("2024-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, "viernes, 1 de marzo", got)

	got, err = LongDate("2024-09-15", true)
	require.NoError(t, err)
	assert.Equal(t, "domingo, 15 de septiembre de 2024", got)

	_, err = LongDate("ayer", false)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestTotal(t *testing.T) {
	trips := []core.Trip{{Amount: 0.1}, {Amount: 0.2}}
	assert.Equal(t, 0.3, Total(trips))
	assert.Equal(t, 24250.5, Total(sampleTrips()))
}

func TestSummary(t *testing.T) {
	p, err := Summary("2024-03-01", sampleTrips(), 24250.5)
	require.NoError(t, err)

	want := "🚖 *Resumen de Viajes - viernes, 1 de marzo*\n" +
		"💰 *Total Recaudado: $ 24.250,50*\n\n" +
		"*VIAJES DE IDA*\n" +
		"- Juan a Retiro: $ 15.000,00\n" +
		"- Viaje corto: $ 1.250,50\n\n" +
		"*VIAJES DE VUELTA*\n" +
		"- Ana, con valija: $ 8.000,00\n\n" +
		"_Generado por: VozRuta_"
	assert.Equal(t, want, p.Body)
	assert.Equal(t, "resumen-2024-03-01.txt", p.Filename)
	assert.NotContains(t, p.Body, "ENCOMIENDAS")
}

func TestTable(t *testing.T) {
	p, err := Table("2024-03-01", sampleTrips(), 24250.5)
	require.NoError(t, err)

	want := "📅 *viernes, 1 de marzo*\n" +
		"💰 *TOTAL: $ 24.251*\n\n" +
		"*VIAJES DE IDA* (2)\n" +
		"- 08:30 Juan a Retiro  |  $ 15.000\n" +
		"- --:-- Viaje corto  |  $ 1.251\n\n" +
		"*VIAJES DE ENCOMIENDA* (0)\n" +
		"- Sin registros\n\n" +
		"*VIAJES DE VUELTA* (1)\n" +
		"- --:-- Ana  |  $ 8.000\n\n" +
		"_Generado por: VozRuta_"
	assert.Equal(t, want, p.Body)
}

func TestCSV(t *testing.T) {
	trips := sampleTrips()
	trips[1].Description = "línea uno\nlínea dos"

	p, err := CSV("2024-03-01", trips)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(p.Body, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "fecha,seccion,hora,pasajero,destino,descripcion,importe", lines[0])
	assert.Equal(t, "2024-03-01,ida,08:30,Juan,Retiro,Juan a Retiro,15000", lines[1])
	assert.Equal(t, "2024-03-01,ida,,,,línea uno línea dos,1250.5", lines[2])
	assert.Equal(t, `2024-03-01,vuelta,,Ana,,"Ana, con valija",8000`, lines[3])
	assert.Equal(t, "text/csv; charset=utf-8", p.ContentType)
}

func TestRenderAndParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatSummary, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	p, err := Render(FormatTable, "2024-03-01", nil, 0)
	require.NoError(t, err)
	assert.Contains(t, p.Body, "(0)")

	_, err = Render(FormatSummary, "2024-02-30", nil, 0)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}
